package transport

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandlerRendersJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantLogs   int
	}{
		{name: "fiber error keeps its code", err: fiber.NewError(fiber.StatusNotFound, "no route"), wantStatus: fiber.StatusNotFound, wantLogs: 0},
		{name: "plain error is internal", err: io.ErrUnexpectedEOF, wantStatus: fiber.StatusInternalServerError, wantLogs: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.ErrorLevel)
			app := NewProbeApp(zap.New(core))
			app.Get("/boom", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode body error = %v", err)
			}
			if body["error"] != tt.err.Error() {
				t.Fatalf("error = %q, want %q", body["error"], tt.err.Error())
			}
			if logs.Len() != tt.wantLogs {
				t.Fatalf("error logs = %d, want %d", logs.Len(), tt.wantLogs)
			}
		})
	}
}
