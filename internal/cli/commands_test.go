package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory user-management backend.
type fakeBackend struct {
	mu       sync.Mutex
	accounts []api.Account
	calls    []string
	bodies   map[string][]byte
	config   map[string]interface{}
	qrPNG    []byte

	deleteStatus int
	deleteDetail string
	listStatus   int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		accounts: []api.Account{
			{ID: "u1", Name: "alice", AlterID: 64, TrafficLimit: 1 << 30, TrafficUsed: 900 << 20},
			{ID: "u2", Name: "bob", AlterID: 32},
		},
		bodies: map[string][]byte{},
		config: map[string]interface{}{
			"log":      map[string]interface{}{"loglevel": "warning"},
			"inbounds": []interface{}{map[string]interface{}{"port": 10086, "protocol": "vmess"}},
		},
		qrPNG: solidSquarePNG(t),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		if b.listStatus != 0 {
			b.record(r, nil)
			writeJSON(w, b.listStatus, map[string]string{"detail": "database is locked"})
			return
		}
		b.record(r, nil)
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.accounts)
	})
	mux.HandleFunc("POST /api/users", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.record(r, body)
		writeJSON(w, http.StatusOK, api.Account{ID: "u3", Name: "carol"})
	})
	mux.HandleFunc("DELETE /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r, nil)
		if b.deleteStatus != 0 {
			writeJSON(w, b.deleteStatus, map[string]string{"detail": b.deleteDetail})
			return
		}
		writeJSON(w, http.StatusOK, api.Ack{Message: "User deleted successfully"})
	})
	mux.HandleFunc("POST /api/users/{id}/reset-stats", func(w http.ResponseWriter, r *http.Request) {
		b.record(r, nil)
		writeJSON(w, http.StatusOK, api.Ack{Message: "Traffic stats reset"})
	})
	mux.HandleFunc("GET /api/users/{id}/qrcode", func(w http.ResponseWriter, r *http.Request) {
		b.record(r, nil)
		writeJSON(w, http.StatusOK, api.QRCode{QRCode: base64.StdEncoding.EncodeToString(b.qrPNG)})
	})
	mux.HandleFunc("GET /api/stats/system", func(w http.ResponseWriter, r *http.Request) {
		b.record(r, nil)
		writeJSON(w, http.StatusOK, api.SystemStats{
			CPU:    api.Resource{Percent: 12.5, Count: 4},
			Memory: api.Resource{Percent: 50, Used: 2 << 30, Total: 4 << 30},
			Disk:   api.Resource{Percent: 95},
		})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		b.record(r, nil)
		writeJSON(w, http.StatusOK, api.Health{Status: "healthy"})
	})
	mux.HandleFunc("GET /api/stats/v2ray", func(w http.ResponseWriter, r *http.Request) {
		b.record(r, nil)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "running",
			"stats": map[string]interface{}{
				"memory_stats": map[string]interface{}{"usage": 1 << 20, "limit": 1 << 30},
			},
		})
	})
	mux.HandleFunc("GET /api/config", func(w http.ResponseWriter, r *http.Request) {
		b.record(r, nil)
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.config)
	})
	mux.HandleFunc("PUT /api/config", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.record(r, body)
		writeJSON(w, http.StatusOK, api.Ack{Message: "Config updated successfully"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) record(r *http.Request, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	b.calls = append(b.calls, key)
	if body != nil {
		b.bodies[key] = body
	}
}

// mutations returns the non-GET calls.
func (b *fakeBackend) mutations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.calls {
		if !strings.HasPrefix(c, http.MethodGet) {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBackend) body(key string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[key]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// solidSquarePNG draws a 7x7 module dark square with a light border.
func solidSquarePNG(t *testing.T) []byte {
	t.Helper()
	const module, border = 2, 8
	size := 7*module + 2*border
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.Gray{Y: 0xff}
			if x >= border && x < border+7*module && y >= border && y < border+7*module {
				c = color.Gray{Y: 0}
			}
			img.SetGray(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// resetFlags puts every flag in the tree back to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command against apiURL in an isolated home.
func runCLI(t *testing.T, apiURL string, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	t.Setenv("NO_COLOR", "1")

	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	if apiURL != "" {
		args = append([]string{"--api-url", apiURL}, args...)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// stubPrompts replaces the terminal prompts for one test.
func stubPrompts(t *testing.T, terminal bool, answer bool) *[]string {
	t.Helper()
	var asked []string
	oldCan, oldConfirm := canPrompt, confirmPrompt
	canPrompt = func() bool { return terminal }
	confirmPrompt = func(title, description string) (bool, error) {
		asked = append(asked, title)
		return answer, nil
	}
	t.Cleanup(func() {
		canPrompt, confirmPrompt = oldCan, oldConfirm
	})
	return &asked
}

func TestUsersList_Table(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "users", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "unlimited")
	assert.Contains(t, out, "2 accounts")
}

func TestUsersList_Empty(t *testing.T) {
	b, srv := newFakeBackend(t)
	b.accounts = nil

	out, err := runCLI(t, srv.URL, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No accounts found")
}

func TestUsersList_JSON(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "users", "list", "--json")
	require.NoError(t, err)

	var env struct {
		Success bool          `json:"success"`
		Data    []api.Account `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.True(t, env.Success)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "alice", env.Data[0].Name)
}

func TestUsersList_JSONError(t *testing.T) {
	b, srv := newFakeBackend(t)
	b.listStatus = http.StatusInternalServerError

	out, err := runCLI(t, srv.URL, "users", "list", "--json")
	code, ok := errors.GetExitCode(err)
	require.True(t, ok, "expected an exit error, got %v", err)
	assert.Equal(t, 1, code)

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeAPIError, env.Error.Code)
	assert.Contains(t, env.Error.Message, "database is locked")
}

func TestUsersList_BackendDown(t *testing.T) {
	_, srv := newFakeBackend(t)
	url := srv.URL
	srv.Close()

	_, err := runCLI(t, url, "users", "list")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNetwork))
}

func TestUsersCreate_SendsParsedInput(t *testing.T) {
	b, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "users", "create", "--name", " carol ", "--limit", "50GiB")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created carol")
	assert.Contains(t, out, "u3")

	var sent api.CreateAccountRequest
	require.NoError(t, json.Unmarshal(b.body("POST /api/users"), &sent))
	assert.Equal(t, "carol", sent.Name)
	assert.Equal(t, 64, sent.AlterID, "alter id defaults to display.default_alter_id")
	assert.Equal(t, int64(50<<30), sent.TrafficLimit)
}

func TestUsersCreate_InvalidInputIssuesNoRequest(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing name", []string{"--name", ""}},
		{"negative alter id", []string{"--name", "dave", "--alter-id=-1"}},
		{"non-numeric alter id", []string{"--name", "dave", "--alter-id", "abc"}},
		{"negative limit", []string{"--name", "dave", "--limit=-5"}},
		{"unparseable limit", []string{"--name", "dave", "--limit", "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, srv := newFakeBackend(t)
			stubPrompts(t, false, false)

			_, err := runCLI(t, srv.URL, append([]string{"users", "create"}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrInput))
			assert.Empty(t, b.mutations())
		})
	}
}

func TestUsersCreate_PromptsForMissingName(t *testing.T) {
	b, srv := newFakeBackend(t)
	stubPrompts(t, true, false)

	old := createPrompt
	t.Cleanup(func() { createPrompt = old })

	var seen string
	createPrompt = func(v *console.CreateForm) error {
		seen = v.AlterID
		v.Name = "erin"
		return nil
	}

	out, err := runCLI(t, srv.URL, "users", "create")
	require.NoError(t, err)
	assert.Equal(t, "64", seen)
	assert.Contains(t, out, "Account created erin")
	assert.Equal(t, []string{"POST /api/users"}, b.mutations())
}

func TestUsersDelete_ByNameWithYes(t *testing.T) {
	b, srv := newFakeBackend(t)
	asked := stubPrompts(t, true, false)

	out, err := runCLI(t, srv.URL, "users", "delete", "bob", "--yes")
	require.NoError(t, err)

	assert.Empty(t, *asked, "--yes skips the prompt")
	assert.Equal(t, []string{"DELETE /api/users/u2"}, b.mutations())
	assert.Contains(t, out, "User deleted successfully: bob")
}

func TestUsersDelete_ByID(t *testing.T) {
	b, srv := newFakeBackend(t)
	stubPrompts(t, true, true)

	_, err := runCLI(t, srv.URL, "users", "rm", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"DELETE /api/users/u1"}, b.mutations())
}

func TestUsersDelete_PromptDeclinedIssuesNoRequest(t *testing.T) {
	b, srv := newFakeBackend(t)
	asked := stubPrompts(t, true, false)

	out, err := runCLI(t, srv.URL, "users", "delete", "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"Are you sure you want to delete account bob?"}, *asked)
	assert.Contains(t, out, "Canceled.")
	assert.Empty(t, b.mutations())
}

func TestUsersDelete_NoTerminalRefuses(t *testing.T) {
	b, srv := newFakeBackend(t)
	stubPrompts(t, false, true)

	_, err := runCLI(t, srv.URL, "users", "delete", "bob")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
	assert.Contains(t, err.Error(), "Confirmation required")
	assert.Contains(t, err.Error(), "--yes")
	assert.Empty(t, b.mutations())
}

func TestUsersDelete_ServerDetailSurfaced(t *testing.T) {
	b, srv := newFakeBackend(t)
	b.deleteStatus = http.StatusNotFound
	b.deleteDetail = "User not found"
	stubPrompts(t, true, true)

	_, err := runCLI(t, srv.URL, "users", "delete", "alice")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAPI))
	assert.Contains(t, err.Error(), "User not found")
	assert.Contains(t, err.Error(), "v2dash users list")
}

func TestUsersDelete_UnknownNameSuggests(t *testing.T) {
	b, srv := newFakeBackend(t)
	stubPrompts(t, true, true)

	_, err := runCLI(t, srv.URL, "users", "delete", "alicee", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `No account with id or name "alicee"`)
	assert.Contains(t, err.Error(), "Did you mean 'alice'?")
	assert.Empty(t, b.mutations())
}

func TestUsersReset_Confirmed(t *testing.T) {
	b, srv := newFakeBackend(t)
	asked := stubPrompts(t, true, true)

	out, err := runCLI(t, srv.URL, "users", "reset", "alice")
	require.NoError(t, err)

	assert.Equal(t, []string{"Reset traffic stats for account alice?"}, *asked)
	assert.Equal(t, []string{"POST /api/users/u1/reset-stats"}, b.mutations())
	assert.Contains(t, out, "Traffic stats reset: alice")
}

func TestUsersQR_DrawsInTerminal(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "users", "qr", "alice")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "alice", lines[0])
	assert.Contains(t, out, "██▄▄▄▄▄▄▄██")
}

func TestUsersQR_WritesFile(t *testing.T) {
	b, srv := newFakeBackend(t)
	path := filepath.Join(t.TempDir(), "alice.png")

	out, err := runCLI(t, srv.URL, "users", "qr", "u1", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, b.qrPNG, data)
}

func TestUsersQR_DataURI(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "users", "qr", "bob", "--data-uri")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "data:image/png;base64,"))
}

func TestFindAccount(t *testing.T) {
	accounts := []api.Account{
		{ID: "u1", Name: "alice"},
		{ID: "u2", Name: "twin"},
		{ID: "u3", Name: "twin"},
		{ID: "alice", Name: "id-collision"},
	}

	got, err := findAccount(accounts, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.ID, "ids win over names")

	got, err = findAccount(accounts, "u2")
	require.NoError(t, err)
	assert.Equal(t, "twin", got.Name)

	_, err = findAccount(accounts, "twin")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
	assert.Contains(t, err.Error(), "u2, u3")

	_, err = findAccount(accounts, "Alice")
	require.Error(t, err, "name matching is exact")
}

func TestStats_Table(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "CPU")
	assert.Contains(t, out, "12.5%")
	assert.Contains(t, out, "95.0%")
	assert.Contains(t, out, "4 cores")
	assert.Contains(t, out, srv.URL)
	assert.Contains(t, out, "RESOURCE")
}

func TestStats_JSON(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "stats", "--json")
	require.NoError(t, err)

	var env struct {
		Success bool            `json:"success"`
		Data    api.SystemStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.True(t, env.Success)
	assert.Equal(t, 12.5, env.Data.CPU.Percent)
}

func TestServerHealth(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "server", "health")
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL+" is healthy")
}

func TestServerContainer(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "server", "container")
	require.NoError(t, err)
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "1.0 MB / 1.1 GB")
}

func TestServerConfig_YAMLAndJSON(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "server", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "loglevel: warning")
	assert.Contains(t, out, "protocol: vmess")

	out, err = runCLI(t, srv.URL, "server", "config", "--json")
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "inbounds")
}

func TestServerConfigApply(t *testing.T) {
	t.Run("yaml file with --yes", func(t *testing.T) {
		b, srv := newFakeBackend(t)
		path := filepath.Join(t.TempDir(), "v2ray.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log:\n  loglevel: debug\ninbounds:\n  - port: 443\n"), 0o600))

		out, err := runCLI(t, srv.URL, "server", "config", "apply", path, "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "Config updated successfully")

		var sent struct {
			Config map[string]interface{} `json:"config"`
		}
		require.NoError(t, json.Unmarshal(b.body("PUT /api/config"), &sent))
		logSection, ok := sent.Config["log"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "debug", logSection["loglevel"])
	})

	t.Run("json file declined", func(t *testing.T) {
		b, srv := newFakeBackend(t)
		asked := stubPrompts(t, true, false)
		path := filepath.Join(t.TempDir(), "v2ray.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"outbounds": [], "log": {}}`), 0o600))

		out, err := runCLI(t, srv.URL, "server", "config", "apply", path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Replace the V2Ray config with v2ray.json?"}, *asked)
		assert.Contains(t, out, "Canceled.")
		assert.Empty(t, b.mutations())
	})

	t.Run("invalid file", func(t *testing.T) {
		b, srv := newFakeBackend(t)
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"log": `), 0o600))

		_, err := runCLI(t, srv.URL, "server", "config", "apply", path, "--yes")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrInput))
		assert.Empty(t, b.mutations())
	})

	t.Run("empty document refused", func(t *testing.T) {
		b, srv := newFakeBackend(t)
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

		_, err := runCLI(t, srv.URL, "server", "config", "apply", path, "--yes")
		require.Error(t, err)
		assert.Empty(t, b.mutations())
	})
}

func TestWatch_CountOne(t *testing.T) {
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "watch", "--count", "1", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "CPU")
}

func TestGlobalFlags_InvalidTimeout(t *testing.T) {
	_, srv := newFakeBackend(t)

	_, err := runCLI(t, srv.URL, "--timeout", "soon", "stats")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
}

func TestGlobalFlags_ConfigFile(t *testing.T) {
	_, srv := newFakeBackend(t)
	path := filepath.Join(t.TempDir(), "v2dash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  url: "+srv.URL+"\ndisplay:\n  default_alter_id: 16\n"), 0o600))

	_, err := runCLI(t, "", "--config", path, "server", "health")
	require.NoError(t, err)

	_, err = runCLI(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "stats")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	var exitErr *errors.ExitError
	assert.False(t, stderrors.As(err, &exitErr))
}
