package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activation"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/model"
)

// DiscoverReactor lists root and every module reachable through <modules>,
// parents before children. Module directories without a descriptor are
// skipped.
func DiscoverReactor(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var (
		dirs []string
		seen = map[string]bool{}
	)
	var walk func(dir string, top bool) error
	walk = func(dir string, top bool) error {
		if seen[dir] {
			return nil
		}
		seen[dir] = true
		d, err := model.ReadFile(filepath.Join(dir, model.DescriptorFile))
		if err != nil {
			if !top && errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		dirs = append(dirs, dir)
		for _, module := range d.Modules {
			if err := walk(filepath.Join(dir, filepath.FromSlash(module)), false); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, true); err != nil {
		return nil, fmt.Errorf("session: discover reactor: %w", err)
	}
	return dirs, nil
}

// ActivateReactor evaluates the custom activators for every project
// directory concurrently and returns the active profile IDs per directory.
// Directories without a descriptor map to no profiles. A descriptor that
// cannot be read or an activation error does not stop the other projects;
// those errors are joined into the returned error.
func (s *Session) ActivateReactor(ctx context.Context, dirs []string) (map[string][]string, error) {
	selector := s.activation()
	system := s.props.System.Map()
	user := s.props.User.Map()

	var (
		mu       sync.Mutex
		active   = make(map[string][]string, len(dirs))
		problems []error
	)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, dir := range dirs {
		g.Go(func() error {
			d, err := model.ReadFile(filepath.Join(dir, model.DescriptorFile))
			if errors.Is(err, os.ErrNotExist) {
				s.logger.Debug("no descriptor", "dir", dir)
				mu.Lock()
				active[dir] = nil
				mu.Unlock()
				return nil
			}
			if err != nil {
				s.logger.Error("descriptor unreadable", "dir", dir, "error", err)
				mu.Lock()
				active[dir] = nil
				problems = append(problems, fmt.Errorf("session: %s: %w", dir, err))
				mu.Unlock()
				return nil
			}
			profiles, err := selector.ActiveProfiles(ctx, d, activation.Context{
				ProjectDir:       dir,
				SystemProperties: system,
				UserProperties:   user,
			})
			mu.Lock()
			defer mu.Unlock()
			active[dir] = profiles
			if err != nil {
				problems = append(problems, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return active, errors.Join(problems...)
}
