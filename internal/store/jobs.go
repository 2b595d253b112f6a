package store

// EnqueueDeliveryJob inserts a delivery job, idempotent on (inbox, activity
// id) per spec.md §4.9 step 3. Returns false without error if the job
// already exists.
func (s *Store) EnqueueDeliveryJob(j DeliveryJob) (created bool, err error) {
	var q string
	if s.driver == "sqlite" {
		q = `INSERT OR IGNORE INTO delivery_jobs (id, inbox, activity_id, payload, sender_key, status, not_before, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	} else {
		q = `INSERT INTO delivery_jobs (id, inbox, activity_id, payload, sender_key, status, not_before, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT DO NOTHING`
	}
	res, err := s.db.Exec(q, j.ID, j.Inbox, j.ActivityID, j.Payload, j.SenderKey, string(JobPending), nowTimestamp(), nowTimestamp())
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClaimDueJobs returns up to limit pending jobs whose not_before has passed,
// the batch a worker pulls per spec.md §4.9 step 4 ("Pulls a bounded batch").
func (s *Store) ClaimDueJobs(limit int) ([]DeliveryJob, error) {
	var q string
	if s.driver == "sqlite" {
		q = `SELECT id, inbox, activity_id, payload, sender_key, attempts, status, not_before
			FROM delivery_jobs WHERE status = ? AND not_before <= ? ORDER BY created_at LIMIT ?`
	} else {
		q = `SELECT id, inbox, activity_id, payload, sender_key, attempts, status, not_before
			FROM delivery_jobs WHERE status = $1 AND not_before <= $2 ORDER BY created_at LIMIT $3`
	}
	rows, err := s.db.Query(q, string(JobPending), nowTimestamp(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DeliveryJob
	for rows.Next() {
		var j DeliveryJob
		var status string
		if err := rows.Scan(&j.ID, &j.Inbox, &j.ActivityID, &j.Payload, &j.SenderKey, &j.Attempts, &status, &j.NotBefore); err != nil {
			return nil, err
		}
		j.Status = DeliveryJobStatus(status)
		out = append(out, j)
	}
	return out, rows.Err()
}

// MarkJobDone marks a job complete after a successful delivery.
func (s *Store) MarkJobDone(id string) error {
	_, err := s.db.Exec(`UPDATE delivery_jobs SET status = `+s.ph(1)+` WHERE id = `+s.ph(2), string(JobDone), id)
	return err
}

// MarkJobFailed marks a job permanently failed (non-retryable 4xx other than
// 408/429, or the retry budget was exhausted).
func (s *Store) MarkJobFailed(id string) error {
	_, err := s.db.Exec(`UPDATE delivery_jobs SET status = `+s.ph(1)+` WHERE id = `+s.ph(2), string(JobFailed), id)
	return err
}

// RescheduleJob bumps a job's attempt count and pushes not_before into the
// future, the retry-with-backoff path for 408/429/5xx/network failures.
func (s *Store) RescheduleJob(id string, notBefore string) error {
	_, err := s.db.Exec(
		`UPDATE delivery_jobs SET attempts = attempts + 1, not_before = `+s.ph(1)+` WHERE id = `+s.ph(2),
		notBefore, id,
	)
	return err
}
