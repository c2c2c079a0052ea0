package syncerr

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "dial tcp: host unreachable" }
func (fakeNetError) Timeout() bool   { return true }
func (fakeNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"net.Error", fakeNetError{}, KindNetwork},
		{"deadline exceeded", context.DeadlineExceeded, KindNetwork},
		{"pg connection exception", &pgconn.PgError{Code: "08006"}, KindNetwork},
		{"connection string match", errors.New("connection refused"), KindNetwork},
		{"timeout string match", errors.New("i/o timeout"), KindNetwork},
		{"no rows", pgx.ErrNoRows, KindNotFound},
		{"pg constraint violation", &pgconn.PgError{Code: "23505"}, KindValidation},
		{"pg data exception", &pgconn.PgError{Code: "22001"}, KindValidation},
		{"pg other", &pgconn.PgError{Code: "42601"}, KindValidation},
		{"json syntax", &json.SyntaxError{}, KindValidation},
		{"canceled", context.Canceled, KindValidation},
		{"unknown", errors.New("something odd"), KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("op", tt.err)
			if KindOf(got) != tt.want {
				t.Errorf("Classify(%v) kind = %q, want %q", tt.err, KindOf(got), tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("Classify(%v) lost the cause", tt.err)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if Classify("op", nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestClassifyPassesThroughExistingKind(t *testing.T) {
	orig := NotFound("fetch", errors.New("gone"))
	got := Classify("outer", orig)
	if got != orig {
		t.Error("already-classified error was rewrapped")
	}
}
