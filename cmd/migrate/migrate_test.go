package migrate_test

import (
	"errors"
	"testing"

	gomigrate "github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/article-ingestor/cmd/migrate"
)

type fakeMigrator struct {
	upErr, downErr error
	calls          []string
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.downErr
}

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		direction   string
		m           *fakeMigrator
		wantApplied bool
		wantErr     bool
	}{
		{name: "up", direction: "up", m: &fakeMigrator{}, wantApplied: true},
		{name: "down", direction: "down", m: &fakeMigrator{}, wantApplied: true},
		{name: "no change", direction: "up", m: &fakeMigrator{upErr: gomigrate.ErrNoChange}},
		{name: "failure", direction: "down", m: &fakeMigrator{downErr: errors.New("dirty database")}, wantErr: true},
		{name: "invalid direction", direction: "sideways", m: &fakeMigrator{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			applied, err := migrate.Run(tt.m, tt.direction)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantApplied, applied)
			assert.Equal(t, []string{tt.direction}, tt.m.calls)
		})
	}
}
