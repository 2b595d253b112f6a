// Package jobqueue implements the persistent delivery queue of spec.md
// §4.9: per-inbox deduplication at enqueue time, where each Enqueue call
// resolves one recipient actor to its inbox (follower collections are not
// expanded here), and a bounded-concurrency worker pool that claims due jobs from the
// store and delivers them with HTTP Signatures, retrying transient
// failures with backoff.
//
// Grounded on internal/ap/federation.go's in-memory Federator.Federate
// fan-out (collectRecipients/resolveInboxes), generalized to survive a
// restart by keeping jobs in internal/store rather than in memory, and on
// original_source/mitra_federation/src/deliver.rs's send_activity for the
// request shape and private-instance log-only mode.
package jobqueue

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/httpagent"
	"github.com/klppl/mitra/internal/httpsig"
	"github.com/klppl/mitra/internal/store"
)

// ResponseSizeLimit bounds how much of an inbox's response body is read,
// matching deliver.rs's RESPONSE_SIZE_LIMIT guard against a malicious or
// misbehaving inbox endpoint.
const ResponseSizeLimit = 2 << 20 // 2 MiB

// MaxAttempts is the retry budget before a job is marked permanently failed.
const MaxAttempts = 10

// Signer resolves the local actor's RSA key used to sign outbound
// deliveries, keyed by the actor id that authored the activity.
type Signer interface {
	SigningKey(actorID string) (keyID string, key *rsa.PrivateKey, ok bool)
}

// Worker claims and delivers due jobs, at most Concurrency at a time via
// the semaphore in Run, mirroring federation.go's
// federationConcurrency fan-out cap.
type Worker struct {
	Store            *store.Store
	Agent            httpagent.Config
	Signer           Signer
	UserAgent        string
	IsInstancePrivate bool
	Concurrency      int
}

// Enqueue implements handler.Deliverer: resolves recipientActorID to an
// inbox (falling back to the actor's personal inbox when no shared inbox is
// known) and inserts a delivery job, idempotent on (inbox, activity id).
func (w *Worker) Enqueue(ctx context.Context, recipientActorID string, activity map[string]interface{}, senderActorID string) error {
	recipient, ok := w.Store.GetActor(recipientActorID)
	if !ok {
		return fmt.Errorf("jobqueue: unknown recipient actor %q", recipientActorID)
	}
	inbox := recipient.SharedInbox
	if inbox == "" {
		inbox = recipient.Inbox
	}
	if inbox == "" {
		return fmt.Errorf("jobqueue: recipient %q has no inbox", recipientActorID)
	}

	activityID, _ := activity["id"].(string)
	payload, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("jobqueue: marshal activity: %w", err)
	}

	_, err = w.Store.EnqueueDeliveryJob(store.DeliveryJob{
		ID:         newULID(),
		Inbox:      inbox,
		ActivityID: activityID,
		Payload:    payload,
		SenderKey:  senderActorID,
		NotBefore:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	return err
}

// Run pulls due jobs in a loop until ctx is cancelled, delivering up to
// Concurrency of them at once. Callers run this in a background goroutine.
func (w *Worker) Run(ctx context.Context, pollInterval time.Duration) {
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	sem := make(chan struct{}, concurrency)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		jobs, err := w.Store.ClaimDueJobs(concurrency * 2)
		if err != nil {
			slog.Error("claim due jobs", "error", err)
			time.Sleep(pollInterval)
			continue
		}
		if len(jobs) == 0 {
			time.Sleep(pollInterval)
			continue
		}
		for _, job := range jobs {
			job := job
			sem <- struct{}{}
			go func() {
				defer func() { <-sem }()
				w.deliverOne(ctx, job)
			}()
		}
	}
}

func (w *Worker) deliverOne(ctx context.Context, job store.DeliveryJob) {
	keyID, key, ok := w.Signer.SigningKey(job.SenderKey)
	if !ok {
		slog.Error("no signing key for delivery job", "sender", job.SenderKey, "job", job.ID)
		_ = w.Store.MarkJobFailed(job.ID)
		return
	}

	if w.IsInstancePrivate {
		slog.Info("private mode: not sending activity", "inbox", job.Inbox)
		_ = w.Store.MarkJobDone(job.ID)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.Inbox, bytes.NewReader(job.Payload))
	if err != nil {
		slog.Error("build delivery request", "error", err, "job", job.ID)
		_ = w.Store.MarkJobFailed(job.ID)
		return
	}
	req.Header.Set("Content-Type", activitypub.ApMediaType)
	req.Header.Set("User-Agent", w.UserAgent)
	if err := httpsig.SignRSA(req, job.Payload, keyID, key); err != nil {
		slog.Error("sign delivery request", "error", err, "job", job.ID)
		_ = w.Store.MarkJobFailed(job.ID)
		return
	}

	client, err := httpagent.NewClient(w.Agent, job.Inbox, 30*time.Second, false)
	if err != nil {
		w.retry(job, fmt.Errorf("build http client: %w", err))
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		w.retry(job, err)
		return
	}
	defer resp.Body.Close()
	body, _ := httpagent.LimitedRead(resp.Body, ResponseSizeLimit)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := w.Store.MarkJobDone(job.ID); err != nil {
			slog.Error("mark job done", "error", err, "job", job.ID)
		}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		w.retry(job, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 200)))
	default:
		slog.Warn("delivery rejected, not retrying", "inbox", job.Inbox, "status", resp.StatusCode, "job", job.ID)
		_ = w.Store.MarkJobFailed(job.ID)
	}
}

func (w *Worker) retry(job store.DeliveryJob, cause error) {
	if job.Attempts+1 >= MaxAttempts {
		slog.Warn("delivery retry budget exhausted", "job", job.ID, "inbox", job.Inbox, "error", cause)
		_ = w.Store.MarkJobFailed(job.ID)
		return
	}
	backoff := backoffFor(job.Attempts)
	slog.Info("delivery failed, rescheduling", "job", job.ID, "inbox", job.Inbox, "error", cause, "backoff", backoff)
	notBefore := time.Now().UTC().Add(backoff).Format(time.RFC3339Nano)
	if err := w.Store.RescheduleJob(job.ID, notBefore); err != nil {
		slog.Error("reschedule job", "error", err, "job", job.ID)
	}
}

// backoffFor is exponential with a 1-hour ceiling, matching the spirit of
// deliver.rs's retry loop (the original leaves backoff policy to its
// caller; this codebase's queue owns it directly since jobs persist).
func backoffFor(attempts int) time.Duration {
	d := time.Minute * time.Duration(1<<uint(attempts))
	if d > time.Hour {
		return time.Hour
	}
	return d
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}
