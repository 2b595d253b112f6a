package store

// CreateReaction persists a Like/Dislike/EmojiReact side effect. Duplicate
// activity ids are ignored per spec.md §4.7 ("Duplicate activity ids are
// ignored"); the unique (author, post, content) index additionally guards
// against the same author reacting twice with the same content via
// different activity ids.
func (s *Store) CreateReaction(r Reaction) (created bool, err error) {
	var q string
	if s.driver == "sqlite" {
		q = `INSERT OR IGNORE INTO reactions (activity_id, author, post_id, content, emoji_name) VALUES (?, ?, ?, ?, ?)`
	} else {
		q = `INSERT INTO reactions (activity_id, author, post_id, content, emoji_name) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`
	}
	res, err := s.db.Exec(q, r.ActivityID, r.Author, r.PostID, r.Content, r.EmojiName)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetReactionByActivity looks up a reaction by the activity id that created it.
func (s *Store) GetReactionByActivity(activityID string) (Reaction, bool) {
	var r Reaction
	err := s.db.QueryRow(
		`SELECT activity_id, author, post_id, content, emoji_name FROM reactions WHERE activity_id = `+s.ph(1), activityID,
	).Scan(&r.ActivityID, &r.Author, &r.PostID, &r.Content, &r.EmojiName)
	if err != nil {
		return Reaction{}, false
	}
	return r, true
}

// DeleteReaction removes a reaction by its originating activity id, the
// Undo(Like)/Undo(Dislike)/Undo(EmojiReact) side effect.
func (s *Store) DeleteReaction(activityID string) error {
	_, err := s.db.Exec(`DELETE FROM reactions WHERE activity_id = `+s.ph(1), activityID)
	return err
}

// CreateRepost persists an Announce side effect. Duplicates (same activity
// id) are ignored.
func (s *Store) CreateRepost(r Repost) (created bool, err error) {
	var q string
	if s.driver == "sqlite" {
		q = `INSERT OR IGNORE INTO reposts (activity_id, announcer, object_id) VALUES (?, ?, ?)`
	} else {
		q = `INSERT INTO reposts (activity_id, announcer, object_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	}
	res, err := s.db.Exec(q, r.ActivityID, r.Announcer, r.ObjectID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetRepostByActivity looks up a repost by its originating Announce activity id.
func (s *Store) GetRepostByActivity(activityID string) (Repost, bool) {
	var r Repost
	err := s.db.QueryRow(
		`SELECT activity_id, announcer, object_id FROM reposts WHERE activity_id = `+s.ph(1), activityID,
	).Scan(&r.ActivityID, &r.Announcer, &r.ObjectID)
	if err != nil {
		return Repost{}, false
	}
	return r, true
}

// DeleteRepostsByObjectAndAnnouncer removes every repost of objectID made by
// announcer, the FEP-1b12 "Announce(Delete)" side effect: deleting that
// group's repost of the Note while leaving other announcers' reposts intact.
func (s *Store) DeleteRepostsByObjectAndAnnouncer(objectID, announcer string) error {
	_, err := s.db.Exec(
		`DELETE FROM reposts WHERE object_id = `+s.ph(1)+` AND announcer = `+s.ph(2),
		objectID, announcer,
	)
	return err
}

// DeleteRepost removes a single repost by its Announce activity id, the
// Undo(Announce) side effect.
func (s *Store) DeleteRepost(activityID string) error {
	_, err := s.db.Exec(`DELETE FROM reposts WHERE activity_id = `+s.ph(1), activityID)
	return err
}
