package store

// CreateNotification persists a notification side effect described
// qualitatively in spec.md §4.7 (e.g. "creates a follow request
// notification", "emit a move notification") as a typed row.
func (s *Store) CreateNotification(id, recipient string, eventType NotificationType, payloadJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO notifications (id, recipient, event_type, payload, created_at) VALUES (`+
			s.ph(1)+`, `+s.ph(2)+`, `+s.ph(3)+`, `+s.ph(4)+`, `+s.ph(5)+`)`,
		id, recipient, string(eventType), payloadJSON, nowTimestamp(),
	)
	return err
}

// GetNotifications returns up to limit notifications for recipient, newest first.
func (s *Store) GetNotifications(recipient string, limit int) ([]Notification, error) {
	var q string
	if s.driver == "sqlite" {
		q = `SELECT id, recipient, event_type, payload, created_at, read FROM notifications WHERE recipient = ? ORDER BY created_at DESC LIMIT ?`
	} else {
		q = `SELECT id, recipient, event_type, payload, created_at, read FROM notifications WHERE recipient = $1 ORDER BY created_at DESC LIMIT $2`
	}
	rows, err := s.db.Query(q, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		var eventType string
		var read int
		if err := rows.Scan(&n.ID, &n.Recipient, &eventType, &n.Payload, &n.CreatedAt, &read); err != nil {
			return nil, err
		}
		n.EventType = NotificationType(eventType)
		n.Read = read != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips a notification's read flag.
func (s *Store) MarkNotificationRead(id string) error {
	_, err := s.db.Exec(`UPDATE notifications SET read = 1 WHERE id = `+s.ph(1), id)
	return err
}

// CreateSubscription records a completed FEP-0837 subscription — the
// Add{target:subscribers} side effect of a completed invoice.
func (s *Store) CreateSubscription(subscriberID, recipientID, invoiceID, expiresAt string) error {
	var q string
	if s.driver == "sqlite" {
		q = `INSERT OR REPLACE INTO subscriptions (subscriber_id, recipient_id, invoice_id, expires_at) VALUES (?, ?, ?, ?)`
	} else {
		q = `INSERT INTO subscriptions (subscriber_id, recipient_id, invoice_id, expires_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT(subscriber_id, recipient_id) DO UPDATE SET invoice_id=EXCLUDED.invoice_id, expires_at=EXCLUDED.expires_at`
	}
	_, err := s.db.Exec(q, subscriberID, recipientID, invoiceID, expiresAt)
	return err
}

// RemoveSubscription removes a subscription — the Remove{target:subscribers} side effect.
func (s *Store) RemoveSubscription(subscriberID, recipientID string) error {
	_, err := s.db.Exec(
		`DELETE FROM subscriptions WHERE subscriber_id = `+s.ph(1)+` AND recipient_id = `+s.ph(2),
		subscriberID, recipientID,
	)
	return err
}
