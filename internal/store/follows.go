package store

import "fmt"

// CreateOrUpdateFollowRequest implements the transactional operation named in
// spec.md §6: create-or-update a FollowRequest keyed by activity id, or by
// (source, target) when the activity id is new but the pair already exists
// (a re-sent Follow after a network retry).
func (s *Store) CreateOrUpdateFollowRequest(activityID, source, target string, status FollowStatus) error {
	if existing, ok := s.GetFollowRequestByPair(source, target); ok && existing.ActivityID != activityID {
		_, err := s.db.Exec(
			`UPDATE follow_requests SET activity_id = `+s.ph(1)+`, status = `+s.ph(2)+` WHERE source = `+s.ph(3)+` AND target = `+s.ph(4),
			activityID, string(status), source, target,
		)
		if err == nil {
			s.followCache.Store(source+"|"+target, status)
		}
		return err
	}
	setCols := []string{"source", "target", "status"}
	q := fmt.Sprintf(
		`INSERT INTO follow_requests (activity_id, source, target, status) VALUES (%s, %s, %s, %s) %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4),
		s.upsertConflictClause("activity_id", setCols),
	)
	_, err := s.db.Exec(q, activityID, source, target, string(status))
	if err == nil {
		s.followCache.Store(source+"|"+target, status)
	}
	return err
}

// GetFollowRequest looks up a follow request by its originating activity id.
func (s *Store) GetFollowRequest(activityID string) (FollowRequest, bool) {
	var fr FollowRequest
	var status string
	err := s.db.QueryRow(
		`SELECT activity_id, source, target, status FROM follow_requests WHERE activity_id = `+s.ph(1), activityID,
	).Scan(&fr.ActivityID, &fr.Source, &fr.Target, &status)
	if err != nil {
		return FollowRequest{}, false
	}
	fr.Status = FollowStatus(status)
	return fr, true
}

// GetFollowRequestByPair looks up the (most recent) follow request between
// source and target, used by Undo(Follow) which references the relationship
// rather than the original Follow activity id.
func (s *Store) GetFollowRequestByPair(source, target string) (FollowRequest, bool) {
	var fr FollowRequest
	var status string
	err := s.db.QueryRow(
		`SELECT activity_id, source, target, status FROM follow_requests WHERE source = `+s.ph(1)+` AND target = `+s.ph(2),
		source, target,
	).Scan(&fr.ActivityID, &fr.Source, &fr.Target, &status)
	if err != nil {
		return FollowRequest{}, false
	}
	fr.Status = FollowStatus(status)
	return fr, true
}

// SetFollowStatus transitions an existing follow request, e.g. Pending ->
// Accepted on Accept(Follow), or Accepted -> Undone on Undo(Follow).
func (s *Store) SetFollowStatus(activityID string, status FollowStatus) error {
	_, err := s.db.Exec(`UPDATE follow_requests SET status = `+s.ph(1)+` WHERE activity_id = `+s.ph(2), string(status), activityID)
	if err == nil {
		if fr, ok := s.GetFollowRequest(activityID); ok {
			s.followCache.Store(fr.Source+"|"+fr.Target, status)
		}
	}
	return err
}

// Followers returns the ids of actors with an Accepted follow request
// targeting actorID — the concrete expansion of a followers collection
// described in spec.md §4.9 step 1.
func (s *Store) Followers(actorID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT source FROM follow_requests WHERE target = `+s.ph(1)+` AND status = `+s.ph(2),
		actorID, string(FollowAccepted),
	)
	if err != nil {
		return nil, err
	}
	return scanStringRows(rows)
}

// Following returns the ids of actors actorID has an Accepted follow
// relationship with.
func (s *Store) Following(actorID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT target FROM follow_requests WHERE source = `+s.ph(1)+` AND status = `+s.ph(2),
		actorID, string(FollowAccepted),
	)
	if err != nil {
		return nil, err
	}
	return scanStringRows(rows)
}

// IsFollowing reports whether source has an Accepted follow targeting target,
// consulting the in-memory cache populated by CreateOrUpdateFollowRequest
// before falling back to the database.
func (s *Store) IsFollowing(source, target string) bool {
	if v, ok := s.followCache.Load(source + "|" + target); ok {
		return v.(FollowStatus) == FollowAccepted
	}
	fr, ok := s.GetFollowRequestByPair(source, target)
	return ok && fr.Status == FollowAccepted
}
