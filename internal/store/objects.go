package store

import "fmt"

// UpsertObject inserts or replaces the local projection of a Note, Article,
// Question, or other object type recognized by spec.md §3.
func (s *Store) UpsertObject(o ObjectRecord) error {
	deleted := 0
	if o.Deleted {
		deleted = 1
	}
	setCols := []string{"object_type", "attributed_to", "in_reply_to", "content_json", "deleted"}
	q := fmt.Sprintf(
		`INSERT INTO objects (id, object_type, attributed_to, in_reply_to, content_json, deleted, created_at)
		 VALUES (%s, %s, %s, %s, %s, %s, %s) %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7),
		s.upsertConflictClause("id", setCols),
	)
	_, err := s.db.Exec(q, o.ID, o.ObjectType, o.AttributedTo, o.InReplyTo, o.ContentJSON, deleted, nowTimestamp())
	return err
}

// GetObject returns the stored projection of an object by canonical id.
func (s *Store) GetObject(id string) (ObjectRecord, bool) {
	var o ObjectRecord
	var deleted int
	err := s.db.QueryRow(
		`SELECT id, object_type, attributed_to, in_reply_to, content_json, deleted FROM objects WHERE id = `+s.ph(1), id,
	).Scan(&o.ID, &o.ObjectType, &o.AttributedTo, &o.InReplyTo, &o.ContentJSON, &deleted)
	if err != nil {
		return ObjectRecord{}, false
	}
	o.Deleted = deleted != 0
	return o, true
}

// TombstoneObject marks an object deleted without removing its row, so that
// a later duplicate Delete is a no-op (spec.md §7 "duplicate ... idempotence").
func (s *Store) TombstoneObject(id string) error {
	_, err := s.db.Exec(`UPDATE objects SET deleted = 1 WHERE id = `+s.ph(1), id)
	return err
}

// ObjectsInReplyTo returns the ids of stored objects whose in_reply_to
// matches parentID, used by conversation-sync backfill.
func (s *Store) ObjectsInReplyTo(parentID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM objects WHERE in_reply_to = `+s.ph(1), parentID)
	if err != nil {
		return nil, err
	}
	return scanStringRows(rows)
}

// ObjectsByAuthor returns up to limit non-deleted object ids attributed to
// actorID, most recent first, for outbox paging.
func (s *Store) ObjectsByAuthor(actorID string, limit int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM objects WHERE attributed_to = `+s.ph(1)+` AND deleted = 0
		 ORDER BY created_at DESC LIMIT `+s.ph(2), actorID, limit)
	if err != nil {
		return nil, err
	}
	return scanStringRows(rows)
}

// PinObject adds objectID to actorID's featured collection (Add{target:featured}).
func (s *Store) PinObject(actorID, objectID string) error {
	var q string
	if s.driver == "sqlite" {
		q = `INSERT OR IGNORE INTO pinned_objects (actor_id, object_id) VALUES (?, ?)`
	} else {
		q = `INSERT INTO pinned_objects (actor_id, object_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	}
	_, err := s.db.Exec(q, actorID, objectID)
	return err
}

// UnpinObject removes objectID from actorID's featured collection (Remove{target:featured}).
func (s *Store) UnpinObject(actorID, objectID string) error {
	_, err := s.db.Exec(`DELETE FROM pinned_objects WHERE actor_id = `+s.ph(1)+` AND object_id = `+s.ph(2), actorID, objectID)
	return err
}

// PinnedObjects returns the ids of actorID's featured objects.
func (s *Store) PinnedObjects(actorID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT object_id FROM pinned_objects WHERE actor_id = `+s.ph(1), actorID)
	if err != nil {
		return nil, err
	}
	return scanStringRows(rows)
}
