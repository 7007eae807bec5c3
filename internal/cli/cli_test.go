package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/cafe/internal/config"
	"github.com/aretw0/cafe/internal/logging"
	"github.com/aretw0/cafe/pkg/adapters/file"
	"github.com/aretw0/cafe/pkg/adapters/memory"
	"github.com/aretw0/cafe/pkg/adapters/redis"
	"github.com/aretw0/cafe/pkg/adapters/sqlite"
	"github.com/aretw0/cafe/pkg/dsl"
	"github.com/aretw0/cafe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphJSON(t *testing.T) []byte {
	t.Helper()
	b := dsl.New("Porch")
	b.Add("sunset").Trigger("sun", map[string]any{"event": "sunset"}).Go("on")
	b.Add("on").Call("light.turn_on").Entity("light.porch")
	g, err := b.Build()
	require.NoError(t, err)
	data, err := json.Marshal(g)
	require.NoError(t, err)
	return data
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNop()
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		store  config.StoreConfig
		assert func(t *testing.T, b *Backend)
	}{
		{"memory", config.StoreConfig{Driver: config.DriverMemory}, func(t *testing.T, b *Backend) {
			assert.IsType(t, &memory.Store{}, b.Store)
		}},
		{"file", config.StoreConfig{Driver: config.DriverFile, Path: dir}, func(t *testing.T, b *Backend) {
			assert.IsType(t, &file.Store{}, b.Store)
		}},
		{"sqlite", config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(dir, "db")}, func(t *testing.T, b *Backend) {
			s, ok := b.Store.(*sqlite.Store)
			require.True(t, ok)
			assert.Equal(t, filepath.Join(dir, "db", "cafe.db"), s.Path())
		}},
		{"redis", config.StoreConfig{Driver: config.DriverRedis, Redis: config.RedisConfig{Addr: mr.Addr(), Prefix: "home"}}, func(t *testing.T, b *Backend) {
			assert.IsType(t, &redis.Store{}, b.Store)
			require.NoError(t, b.Store.Save(ctx, &ports.StoredAutomation{ID: "porch", YAML: "x"}))
			assert.True(t, mr.Exists("home:automation:porch"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store = tt.store
			b, err := OpenBackend(ctx, cfg, logger)
			require.NoError(t, err)
			defer b.Close()
			require.NotNil(t, b.Locker)
			tt.assert(t, b)
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Driver = "etcd"
		_, err := OpenBackend(ctx, cfg, logger)
		assert.Error(t, err)
	})
}

func TestOpenBackend_Encrypted(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store = config.StoreConfig{Driver: config.DriverFile, Path: t.TempDir()}
	cfg.Store.Encryption.Key = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	b, err := OpenBackend(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, b.Store.Save(ctx, &ports.StoredAutomation{ID: "porch", YAML: "alias: Porch\n"}))

	raw, err := file.New(cfg.Store.Path).Load(ctx, "porch")
	require.NoError(t, err)
	assert.NotContains(t, raw.YAML, "Porch")

	got, err := b.Store.Load(ctx, "porch")
	require.NoError(t, err)
	assert.Equal(t, "alias: Porch\n", got.YAML)

	cfg.Store.Encryption.Key = "short"
	_, err = OpenBackend(ctx, cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestTranspileFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "porch.json")
	out := filepath.Join(dir, "porch.yaml")
	require.NoError(t, os.WriteFile(in, graphJSON(t), 0644))

	tr := NewTranspiler(config.Default(), logging.NewNop(), false)
	res, err := TranspileFile(context.Background(), tr, in, out, nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "action: light.turn_on")

	// Read it back through stdin and stdout.
	var stdout bytes.Buffer
	imp, err := ImportFile(context.Background(), tr, "-", "-", bytes.NewReader(data), &stdout)
	require.NoError(t, err)
	assert.True(t, imp.HadMetadata)
	assert.Contains(t, stdout.String(), `"id": "sunset"`)
}

func TestTranspileFile_Rejected(t *testing.T) {
	tr := NewTranspiler(config.Default(), logging.NewNop(), false)
	var stdout bytes.Buffer
	res, err := TranspileFile(context.Background(), tr, "-", "-",
		strings.NewReader(`{"nodes": [], "edges": []}`), &stdout)
	assert.True(t, errors.Is(err, ErrRejected))
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Errors)
	assert.Empty(t, stdout.String())
}

func TestNewTranspiler_UsesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Transpiler.Dialect = "legacy"
	tr := NewTranspiler(cfg, logging.NewNop(), true)

	var stdout bytes.Buffer
	_, err := TranspileFile(context.Background(), tr, "-", "-", bytes.NewReader(graphJSON(t)), &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "service: light.turn_on")
}

func TestPrintReport_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, "# Title\n")
	assert.Equal(t, "# Title\n", buf.String())
	assert.False(t, IsTerminal(&buf))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logging.NewNop(), func() error {
			runs.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": []}`), 0644))
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
