package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/qaspar/internal/api/models"
	"github.com/smazurov/qaspar/internal/process"
)

// registerSessionRoutes registers the session status and control routes.
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Session Status",
		Description: "Get the supervision state and per-process stall counters",
		Tags:        []string{"session"},
		Security:    s.withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		if s.options.Session == nil {
			return nil, huma.Error503ServiceUnavailable("No supervision session")
		}
		return &models.SessionResponse{Body: sessionData(s.options.Session.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "stop-session",
		Method:        http.MethodPost,
		Path:          "/api/session/stop",
		Summary:       "Stop Session",
		Description:   "Request an external stop: every process is killed and the session ends without failure",
		Tags:          []string{"session"},
		Security:      s.withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.StopResponse, error) {
		if s.options.Session == nil {
			return nil, huma.Error503ServiceUnavailable("No supervision session")
		}
		state := s.options.Session.Status().State
		s.options.Session.Stop()
		s.logger.Info("Session stop requested over the API", "state", state)
		return &models.StopResponse{
			Body: models.StopData{
				Message: "Stop requested",
				State:   string(state),
			},
		}, nil
	})
}

func sessionData(status process.Status) models.SessionData {
	processes := make([]models.ProcessData, len(status.Processes))
	for i, p := range status.Processes {
		processes[i] = models.ProcessData{
			Name:          p.Name,
			PID:           p.PID,
			Running:       p.Running,
			EmptyPolls:    p.EmptyPolls,
			MaxEmptyPolls: p.MaxEmptyPolls,
			ExitCode:      p.ExitCode,
		}
	}
	return models.SessionData{
		State:          string(status.State),
		Tick:           status.Tick,
		Processes:      processes,
		CleanupEnabled: status.CleanupEnabled,
		CleanupDir:     status.CleanupDir,
	}
}
