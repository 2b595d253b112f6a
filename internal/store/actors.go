package store

import "fmt"

// UpsertActor inserts or replaces the local projection of an actor.
func (s *Store) UpsertActor(a ActorRecord) error {
	isLocal := 0
	if a.IsLocal {
		isLocal = 1
	}
	cols := "id, is_local, username, inbox, shared_inbox, followers_url, public_key_pem, public_key_id, also_known_as, moved_to, profile_json, updated_at"
	q := fmt.Sprintf(
		`INSERT INTO actors (%s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ','now')) %s`,
		cols,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11),
		s.upsertConflictClause("id", []string{
			"is_local", "username", "inbox", "shared_inbox", "followers_url",
			"public_key_pem", "public_key_id", "also_known_as", "moved_to", "profile_json", "updated_at",
		}),
	)
	if s.driver == "postgres" {
		q = fmt.Sprintf(
			`INSERT INTO actors (%s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, now()::text) %s`,
			cols,
			s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11),
			s.upsertConflictClause("id", []string{
				"is_local", "username", "inbox", "shared_inbox", "followers_url",
				"public_key_pem", "public_key_id", "also_known_as", "moved_to", "profile_json", "updated_at",
			}),
		)
	}
	_, err := s.db.Exec(q, a.ID, isLocal, a.Username, a.Inbox, a.SharedInbox, a.FollowersURL,
		a.PublicKeyPEM, a.PublicKeyID, a.AlsoKnownAs, a.MovedTo, a.ProfileJSON)
	if err == nil {
		s.actorIDByKeyID.Store(a.PublicKeyID, a.ID)
	}
	return err
}

// GetActor returns the stored projection of an actor by canonical id.
func (s *Store) GetActor(id string) (ActorRecord, bool) {
	var a ActorRecord
	var isLocal int
	err := s.db.QueryRow(
		`SELECT id, is_local, username, inbox, shared_inbox, followers_url, public_key_pem, public_key_id, also_known_as, moved_to, profile_json
		 FROM actors WHERE id = `+s.ph(1), id,
	).Scan(&a.ID, &isLocal, &a.Username, &a.Inbox, &a.SharedInbox, &a.FollowersURL,
		&a.PublicKeyPEM, &a.PublicKeyID, &a.AlsoKnownAs, &a.MovedTo, &a.ProfileJSON)
	if err != nil {
		return ActorRecord{}, false
	}
	a.IsLocal = isLocal != 0
	return a, true
}

// ActorIDForKeyID resolves an HTTP-signature keyId to the actor id that owns
// it, the core step of the ownership check in spec.md §4.8.
func (s *Store) ActorIDForKeyID(keyID string) (string, bool) {
	if v, ok := s.actorIDByKeyID.Load(keyID); ok {
		return v.(string), true
	}
	var actorID string
	err := s.db.QueryRow(`SELECT id FROM actors WHERE public_key_id = `+s.ph(1), keyID).Scan(&actorID)
	if err != nil {
		return "", false
	}
	s.actorIDByKeyID.Store(keyID, actorID)
	return actorID, true
}

// GetLocalActorByUsername resolves a local actor by its username, used by
// the actor/inbox/outbox/collection endpoints to route a path segment to a
// stored identity.
func (s *Store) GetLocalActorByUsername(username string) (ActorRecord, bool) {
	var a ActorRecord
	var isLocal int
	err := s.db.QueryRow(
		`SELECT id, is_local, username, inbox, shared_inbox, followers_url, public_key_pem, public_key_id, also_known_as, moved_to, profile_json
		 FROM actors WHERE username = `+s.ph(1)+` AND is_local = `+s.ph(2), username, 1,
	).Scan(&a.ID, &isLocal, &a.Username, &a.Inbox, &a.SharedInbox, &a.FollowersURL,
		&a.PublicKeyPEM, &a.PublicKeyID, &a.AlsoKnownAs, &a.MovedTo, &a.ProfileJSON)
	if err != nil {
		return ActorRecord{}, false
	}
	a.IsLocal = isLocal != 0
	return a, true
}

// ListRemoteActorIDs returns the canonical ids of every non-local actor
// known to the store, used by the periodic actor resyncer to find
// candidates for re-fetching (internal/periodic).
func (s *Store) ListRemoteActorIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM actors WHERE is_local = ` + s.ph(1), 0)
	if err != nil {
		return nil, fmt.Errorf("store: list remote actor ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetMovedTo records that a local or cached remote actor has migrated,
// per the Move handler in spec.md §4.7.
func (s *Store) SetMovedTo(actorID, newActorID string) error {
	_, err := s.db.Exec(`UPDATE actors SET moved_to = `+s.ph(1)+` WHERE id = `+s.ph(2), newActorID, actorID)
	return err
}
