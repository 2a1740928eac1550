package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pafrisco/clinic-booking/internal/athena"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

var (
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("directory: already initialized")

	// ErrInvalidCredentials is returned when a login does not match any provider.
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
)

// Provider is a bookable provider with demo login credentials.
type Provider struct {
	ProviderID string
	Name       string
	Username   string
	Password   string
}

// ProviderLister fetches the remote provider list.
type ProviderLister interface {
	ListProviders(ctx context.Context) ([]athena.Provider, error)
}

// Options configures a Directory.
type Options struct {
	// DemoPassword is assigned to every provider loaded from the remote
	// directory. Sandbox-only.
	DemoPassword string
	// CaseInsensitiveLogin makes Authenticate ignore username case.
	CaseInsensitiveLogin bool
	Logger               *logging.Logger
}

// Directory holds the providers loaded at startup. It is written once by
// Initialize and read concurrently afterwards.
type Directory struct {
	mu          sync.RWMutex
	providers   []Provider
	initialized bool

	demoPassword    string
	caseInsensitive bool
	logger          *logging.Logger
}

// New creates an empty directory.
func New(opts Options) *Directory {
	if opts.DemoPassword == "" {
		opts.DemoPassword = "pass123"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Directory{
		demoPassword:    opts.DemoPassword,
		caseInsensitive: opts.CaseInsensitiveLogin,
		logger:          opts.Logger,
	}
}

// FallbackProviders is the static list installed when the remote directory
// cannot be loaded.
func FallbackProviders(password string) []Provider {
	return []Provider{
		{ProviderID: "1", Name: "Dr. John Smith", Username: "drjohnsmith", Password: password},
		{ProviderID: "2", Name: "Dr. Jane Doe", Username: "drjanedoe", Password: password},
	}
}

// Initialize loads providers from source. Any failure, including an empty
// list, installs FallbackProviders so at least one provider is bookable.
func (d *Directory) Initialize(ctx context.Context, source ProviderLister) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return ErrAlreadyInitialized
	}

	providers, err := d.load(ctx, source)
	if err != nil {
		d.logger.Error("failed to load providers, using fallback directory", "error", err)
		providers = FallbackProviders(d.demoPassword)
	}

	d.providers = providers
	d.initialized = true

	d.logger.Info("provider directory initialized", "count", len(providers), "fallback", err != nil)
	for _, p := range providers {
		d.logger.Info("demo login credentials",
			"provider", p.Name,
			"username", p.Username,
			"password", p.Password,
		)
	}
	return nil
}

func (d *Directory) load(ctx context.Context, source ProviderLister) ([]Provider, error) {
	if source == nil {
		return nil, errors.New("directory: no provider source configured")
	}
	remote, err := source.ListProviders(ctx)
	if err != nil {
		return nil, err
	}

	providers := make([]Provider, 0, len(remote))
	for _, rp := range remote {
		name := strings.TrimSpace(rp.DisplayName)
		if name == "" {
			continue
		}
		providers = append(providers, Provider{
			ProviderID: rp.ID,
			Name:       name,
			Username:   fmt.Sprintf("doctor%d", len(providers)+1),
			Password:   d.demoPassword,
		})
	}
	if len(providers) == 0 {
		return nil, errors.New("directory: remote returned no providers with a display name")
	}
	return providers, nil
}

// List returns a copy of every provider in load order.
func (d *Directory) List() []Provider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Provider, len(d.providers))
	copy(out, d.providers)
	return out
}

// Len reports how many providers are loaded.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.providers)
}

// LookupByUsername finds a provider by exact username.
func (d *Directory) LookupByUsername(username string) (Provider, bool) {
	return d.find(func(p Provider) bool { return p.Username == username })
}

// LookupByName finds a provider by exact display name.
func (d *Directory) LookupByName(name string) (Provider, bool) {
	return d.find(func(p Provider) bool { return p.Name == name })
}

// Authenticate checks demo credentials. Username matching honours the
// CaseInsensitiveLogin option; passwords always match exactly.
func (d *Directory) Authenticate(username, password string) (Provider, error) {
	p, ok := d.find(func(p Provider) bool {
		if d.caseInsensitive {
			return strings.EqualFold(p.Username, username) && p.Password == password
		}
		return p.Username == username && p.Password == password
	})
	if !ok {
		return Provider{}, ErrInvalidCredentials
	}
	return p, nil
}

func (d *Directory) find(match func(Provider) bool) (Provider, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.providers {
		if match(p) {
			return p, true
		}
	}
	return Provider{}, false
}

// WelcomeMessage greets a provider by the second word of their display name
// ("Dr. Jane Doe" -> "Welcome Dr. Jane!"), or the whole name when it has one
// word.
func WelcomeMessage(name string) string {
	parts := strings.Split(name, " ")
	greet := name
	if len(parts) > 1 && parts[1] != "" {
		greet = parts[1]
	}
	return fmt.Sprintf("Welcome Dr. %s!", greet)
}
