// workers/roster_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"school-progression-service/models"
	"school-progression-service/repository"
	"school-progression-service/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetRosterChangesResponse is the top-level roster endpoint response.
type GetRosterChangesResponse struct {
	Users []models.RemoteUser `json:"users"`
}

// RosterSyncWorker mirrors portal users into the local portal_users table so
// task events can be validated without a cross-service call per request.
type RosterSyncWorker struct {
	db           *gorm.DB
	users        repository.UserRepo
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/roster"
	serviceToken string
	httpClient   *http.Client
	log          *zap.Logger
}

func NewRosterSyncWorker(db *gorm.DB, users repository.UserRepo, baseURL, endpointPath, serviceToken string, log *zap.Logger) *RosterSyncWorker {
	return &RosterSyncWorker{
		db:           db,
		users:        users,
		interval:     1 * time.Minute,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
		log:          log,
	}
}

func (w *RosterSyncWorker) Start(ctx context.Context) {
	w.log.Info("starting roster sync worker")
	go w.run(ctx)
}

func (w *RosterSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		w.log.Warn("initial roster sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				w.log.Error("roster sync batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.log.Info("roster sync worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *RosterSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM portal_users WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches roster changes since the given time and upserts them.
func (w *RosterSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid roster service URL '%s': %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)

	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create roster request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call roster service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("roster service returned %d: %s", resp.StatusCode, string(body))
	}

	var payload GetRosterChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode roster response: %w", err)
	}
	if len(payload.Users) == 0 {
		return nil
	}

	users := make([]models.PortalUser, 0, len(payload.Users))
	for _, u := range payload.Users {
		if u.DeletedAt != nil {
			continue // deletions are handled by the portal; mirrors keep history
		}
		users = append(users, models.PortalUser{
			ExternalUserID: u.ExternalID,
			Username:       u.Username,
			Email:          u.Email,
			Role:           u.Role,
			SchoolID:       u.SchoolID,
			FirstName:      u.FirstName,
			LastName:       u.LastName,
		})
	}
	if err := w.users.Upsert(ctx, users); err != nil {
		return fmt.Errorf("failed to upsert roster batch: %w", err)
	}

	w.log.Info("roster batch synced", zap.Int("users", len(users)))
	return nil
}
