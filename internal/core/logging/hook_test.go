package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextHook_Run(t *testing.T) {
	tests := []struct {
		name      string
		setupCtx  func() context.Context
		wantKeys  []string
		wantEmpty []string
	}{
		{
			name: "record_id and user_id",
			setupCtx: func() context.Context {
				ctx := context.Background()
				ctx = WithRecordID(ctx, 1001)
				ctx = WithUserID(ctx, "user-7")
				return ctx
			},
			wantKeys: []string{"record_id", "user_id"},
		},
		{
			name: "only record_id",
			setupCtx: func() context.Context {
				return WithRecordID(context.Background(), 1002)
			},
			wantKeys:  []string{"record_id"},
			wantEmpty: []string{"user_id"},
		},
		{
			name: "only user_id",
			setupCtx: func() context.Context {
				return WithUserID(context.Background(), "user-7")
			},
			wantKeys:  []string{"user_id"},
			wantEmpty: []string{"record_id"},
		},
		{
			name:      "no context values",
			setupCtx:  context.Background,
			wantEmpty: []string{"record_id", "user_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ctx := tt.setupCtx()

			logger := zerolog.New(&buf).Hook(ContextHook{})
			logger.Info().Ctx(ctx).Msg("test")

			var logEntry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
				t.Fatalf("failed to parse log: %v", err)
			}

			for _, key := range tt.wantKeys {
				if _, ok := logEntry[key]; !ok {
					t.Errorf("expected %s to be present in log", key)
				}
			}

			for _, key := range tt.wantEmpty {
				if _, ok := logEntry[key]; ok {
					t.Errorf("expected %s to be absent from log", key)
				}
			}
		})
	}
}
