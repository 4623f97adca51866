package demucs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"demusic/internal/services"
	"demusic/internal/services/demucs"
)

// writeStub writes a shell script standing in for the demucs entrypoint. The
// argument order matches the separator's invocation:
// -m demucs.separate -n <model> --two-stems <stem> --out <dir> <audio>.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python3")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip_audio.mp3")
	if err := os.WriteFile(path, []byte("mp3 bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestIsolateReturnsStemPath(t *testing.T) {
	stub := writeStub(t, `#!/bin/sh
model="$4"; stem="$6"; out="$8"; audio="$9"
base=$(basename "$audio"); base="${base%.*}"
mkdir -p "$out/$model/$base"
: > "$out/$model/$base/$stem.wav"
`)
	separator := demucs.NewSeparator(demucs.Config{PythonBin: stub, Model: "htdemucs"})
	audioPath := audioFixture(t)

	resultPath, err := separator.Isolate(context.Background(), audioPath, "vocals")
	if err != nil {
		t.Fatalf("Isolate failed: %v", err)
	}

	want := filepath.Join(filepath.Dir(audioPath), "demucs", "htdemucs", "clip_audio", "vocals.wav")
	if resultPath != want {
		t.Fatalf("unexpected result path: got %s, want %s", resultPath, want)
	}
	if _, err := os.Stat(resultPath); err != nil {
		t.Fatalf("expected stem file: %v", err)
	}
}

func TestIsolateMissingStemFile(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\nexit 0\n")
	separator := demucs.NewSeparator(demucs.Config{PythonBin: stub})

	_, err := separator.Isolate(context.Background(), audioFixture(t), "vocals")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected missing-stem detail, got %v", err)
	}
}

func TestIsolateCommandFailure(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\necho 'CUDA out of memory' >&2\nexit 1\n")
	separator := demucs.NewSeparator(demucs.Config{PythonBin: stub})

	_, err := separator.Isolate(context.Background(), audioFixture(t), "vocals")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

func TestNewSeparatorDefaults(t *testing.T) {
	separator := demucs.NewSeparator(demucs.Config{})
	if separator.Name() != "demucs" {
		t.Fatalf("unexpected provider name: %s", separator.Name())
	}
}
