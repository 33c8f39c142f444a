// Package catalog lists every supported robot family.
package catalog

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/extensions/aicobot"
	"github.com/srg/botlink/internal/extensions/drone"
	"github.com/srg/botlink/internal/extensions/jcboard"
	"github.com/srg/botlink/internal/extensions/robodog"
	"github.com/srg/botlink/internal/session"
)

// Constructor builds an extension bound to a transport.
type Constructor func(transport device.Transport, opts session.Options, logger *logrus.Logger) extension.Extension

// Family describes one extension and how to build it.
type Family struct {
	ID          string
	Name        string
	ServiceUUID string
	New         Constructor
}

func droneFamily(v drone.Variant) Family {
	return Family{
		ID:          v.ID,
		Name:        v.Name,
		ServiceUUID: drone.ServiceUUID,
		New: func(t device.Transport, opts session.Options, logger *logrus.Logger) extension.Extension {
			return drone.New(v, t, opts, logger)
		},
	}
}

var families = func() []Family {
	out := []Family{
		{
			ID: aicobot.ID, Name: aicobot.Name, ServiceUUID: aicobot.ServiceUUID,
			New: func(t device.Transport, opts session.Options, logger *logrus.Logger) extension.Extension {
				return aicobot.New(t, opts, logger)
			},
		},
		{
			ID: jcboard.ID, Name: jcboard.Name, ServiceUUID: jcboard.ServiceUUID,
			New: func(t device.Transport, opts session.Options, logger *logrus.Logger) extension.Extension {
				return jcboard.New(t, opts, logger)
			},
		},
		{
			ID: robodog.ID, Name: robodog.Name, ServiceUUID: robodog.ServiceUUID,
			New: func(t device.Transport, opts session.Options, logger *logrus.Logger) extension.Extension {
				return robodog.New(t, opts, logger)
			},
		},
	}
	for _, v := range drone.Variants() {
		out = append(out, droneFamily(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}()

// Families returns every family sorted by ID.
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// Lookup finds a family by extension ID.
func Lookup(id string) (Family, error) {
	for _, f := range families {
		if f.ID == id {
			return f, nil
		}
	}
	return Family{}, fmt.Errorf("%w: %q", extension.ErrUnknownExtension, id)
}

// IDs lists the extension IDs.
func IDs() []string {
	ids := make([]string, len(families))
	for i, f := range families {
		ids[i] = f.ID
	}
	return ids
}

// NewRuntime registers one extension per family, all sharing transport.
func NewRuntime(transport device.Transport, opts session.Options, logger *logrus.Logger) (*extension.Runtime, error) {
	rt := extension.NewRuntime(logger)
	for _, f := range families {
		if err := rt.Register(f.New(transport, opts, logger)); err != nil {
			return nil, err
		}
	}
	return rt, nil
}
