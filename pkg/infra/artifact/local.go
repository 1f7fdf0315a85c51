package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"github.com/m-mizutani/tubeaudio/pkg/domain/model"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

// Local keeps artifacts in a spool directory, one subdirectory per job
type Local struct {
	baseDir string
}

var _ interfaces.ArtifactStore = (*Local)(nil)

// NewLocal creates the spool directory if needed
func NewLocal(baseDir string) (*Local, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to create artifact directory", goerr.V("dir", baseDir))
	}
	return &Local{baseDir: baseDir}, nil
}

// Save moves the artifact file into the spool. The key is
// "<job id>/<file name>".
func (s *Local) Save(ctx context.Context, id types.JobID, artifact *model.Artifact) (string, error) {
	key := id.String() + "/" + artifact.Name
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return "", goerr.Wrap(err, "failed to create job artifact directory", goerr.V("job_id", id))
	}

	// Rename fails across filesystems; fall back to copying
	if err := os.Rename(artifact.Path, dst); err != nil {
		if err := copyFile(artifact.Path, dst); err != nil {
			return "", goerr.Wrap(err, "failed to store artifact", goerr.V("job_id", id), goerr.V("src", artifact.Path))
		}
	}

	return key, nil
}

// Open opens the stored file
func (s *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(err, "artifact not found", goerr.V("key", key), goerr.T(types.ErrTagJobNotFound))
		}
		return nil, goerr.Wrap(err, "failed to open artifact", goerr.V("key", key))
	}
	return f, nil
}

// Remove deletes the job's spool subdirectory
func (s *Local) Remove(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		return goerr.Wrap(err, "failed to remove artifact", goerr.V("key", key))
	}
	return nil
}

// path resolves key inside the spool and rejects keys escaping it
func (s *Local) path(key string) (string, error) {
	base := filepath.Clean(s.baseDir)
	path := filepath.Join(base, filepath.FromSlash(key))
	if !strings.HasPrefix(path, base+string(os.PathSeparator)) || filepath.Dir(path) == base {
		return "", goerr.New("invalid artifact key", goerr.V("key", key), goerr.T(types.ErrTagJobNotFound))
	}
	return path, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
