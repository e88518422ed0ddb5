package cli

import (
	"testing"
	"time"

	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		want    time.Duration
		wantErr bool
	}{
		{
			name: "empty string returns zero",
			flag: "",
			want: 0,
		},
		{
			name: "valid seconds",
			flag: "5s",
			want: 5 * time.Second,
		},
		{
			name: "valid milliseconds",
			flag: "500ms",
			want: 500 * time.Millisecond,
		},
		{
			name: "valid complex duration",
			flag: "1m30s",
			want: 90 * time.Second,
		},
		{
			name:    "bare number returns error",
			flag:    "5",
			wantErr: true,
		},
		{
			name:    "invalid string returns error",
			flag:    "fast",
			wantErr: true,
		},
		{
			name:    "negative duration returns error",
			flag:    "-5s",
			wantErr: true,
		},
		{
			name:    "zero returns error",
			flag:    "0s",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeout(tt.flag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddOutputFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &OutputFlags{}

	AddOutputFlags(cmd, flags)

	jsonFlag := cmd.Flags().Lookup("json")
	require.NotNil(t, jsonFlag, "json flag should be registered")
	assert.Equal(t, "false", jsonFlag.DefValue)

	require.NoError(t, cmd.Flags().Set("json", "true"))
	assert.True(t, flags.JSON)
}

func TestAddConfirmFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &ConfirmFlags{}

	AddConfirmFlags(cmd, flags)

	yesFlag := cmd.Flags().ShorthandLookup("y")
	require.NotNil(t, yesFlag, "-y shorthand should be registered")
	assert.Equal(t, "yes", yesFlag.Name)

	require.NoError(t, cmd.Flags().Set("yes", "true"))
	assert.True(t, flags.Yes)
}
