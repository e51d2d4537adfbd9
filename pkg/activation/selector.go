package activation

import (
	"context"
	"errors"

	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/model"
)

// Selector asks a set of custom activators about every profile of a
// descriptor.
type Selector struct {
	activators []*CustomActivator
}

func NewSelector(activators ...*CustomActivator) *Selector {
	return &Selector{activators: activators}
}

func (s *Selector) Activators() []*CustomActivator {
	return append([]*CustomActivator(nil), s.activators...)
}

// ActiveProfiles returns the IDs of the profiles of d that some configured
// activator finds active, in declaration order. Activation errors are joined
// and returned alongside the profiles that could be decided.
func (s *Selector) ActiveProfiles(ctx context.Context, d *model.Descriptor, actx Context) ([]string, error) {
	var (
		active []string
		errs   []error
	)
	for _, profile := range d.Profiles {
		for _, activator := range s.activators {
			if !activator.PresentInConfig(profile, actx) {
				continue
			}
			ok, err := activator.IsActive(ctx, profile, actx)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				active = append(active, profile.ID)
				break
			}
		}
	}
	return active, errors.Join(errs...)
}
