package popup

import (
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/config"
)

// ThanksMessage confirms a newsletter subscription.
const ThanksMessage = "¡Gracias! Ahora recibirás nuestros reportes semanales."

// LocalThanksMessage confirms a local-business registration.
const LocalThanksMessage = "¡Gracias! Revisaremos tu local y te contactaremos pronto."

// Modal names an overlay on the page.
type Modal string

const (
	Registration Modal = "registro"
	Local        Modal = "local"
	Map          Modal = "mapa"
)

// ParseModal maps a URL segment to a Modal.
func ParseModal(s string) (Modal, bool) {
	switch Modal(s) {
	case Registration, Local, Map:
		return Modal(s), true
	}
	return "", false
}

// ClickTarget says where inside a modal a click landed.
type ClickTarget string

const (
	Backdrop ClickTarget = "backdrop"
	Content  ClickTarget = "content"
)

// ErrInvalidEmail is returned when a subscription carries no usable address.
var ErrInvalidEmail = errors.New("popup: invalid email")

// Controller tracks which modals of one session are open. The page scroll is locked exactly
// while at least one modal is open.
type Controller struct {
	cfg    config.PopupConfig
	logger *zap.Logger

	mu   sync.Mutex
	open map[Modal]bool
}

// New returns a controller with every modal closed.
func New(cfg config.PopupConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{cfg: cfg, logger: logger, open: map[Modal]bool{}}
}

// Delay is how long the page waits before asking for the registration popup.
func (c *Controller) Delay() time.Duration { return c.cfg.Delay }

// FlagName is the durable "already subscribed" flag.
func (c *Controller) FlagName() string { return c.cfg.FlagName }

// ShowRegistration opens the registration popup unless the durable flag is already set. It
// reports whether the popup was opened.
func (c *Controller) ShowRegistration(flagSet bool) bool {
	if flagSet {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[Registration] = true
	return true
}

// Subscription is the outcome of a newsletter submission.
type Subscription struct {
	Email   string
	Message string
	// PersistFlag tells the caller to set the durable flag.
	PersistFlag bool
}

// Subscribe validates email and closes the registration popup.
func (c *Controller) Subscribe(email string) (Subscription, error) {
	addr, err := parseEmail(email)
	if err != nil {
		return Subscription{}, err
	}
	c.Close(Registration)
	c.logger.Info("newsletter subscription", zap.String("email_domain", domainOf(addr)))
	return Subscription{Email: addr, Message: ThanksMessage, PersistFlag: c.cfg.PersistOnSubmit}, nil
}

// Toggle flips the visibility of m and returns whether it is now open.
func (c *Controller) Toggle(m Modal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[m] = !c.open[m]
	return c.open[m]
}

// Open shows m.
func (c *Controller) Open(m Modal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[m] = true
}

// Close hides m.
func (c *Controller) Close(m Modal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[m] = false
}

// Click closes m when the click landed on its backdrop. Clicks on the content are ignored.
// It returns whether m is still open.
func (c *Controller) Click(m Modal, target ClickTarget) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if target == Backdrop && c.open[m] {
		c.open[m] = false
	}
	return c.open[m]
}

// IsOpen reports whether m is visible.
func (c *Controller) IsOpen(m Modal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open[m]
}

// ScrollLocked reports whether any modal is open.
func (c *Controller) ScrollLocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, open := range c.open {
		if open {
			return true
		}
	}
	return false
}

// LocalSubmission is the local-business registration form.
type LocalSubmission struct {
	Name     string
	Category string
	Contact  string
	Address  string
	Message  string
}

// FieldErrors maps form field names to messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	return "popup: invalid submission (" + strings.Join(parts, "; ") + ")"
}

// Receipt acknowledges an accepted local registration.
type Receipt struct {
	Reference  string
	Submission LocalSubmission
	Message    string
}

// SubmitLocal validates a local-business registration and closes the local modal. Accepted
// submissions are only logged.
func (c *Controller) SubmitLocal(sub LocalSubmission, categories config.Categories) (Receipt, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Category = strings.ToLower(strings.TrimSpace(sub.Category))
	sub.Contact = strings.TrimSpace(sub.Contact)
	sub.Address = strings.TrimSpace(sub.Address)
	sub.Message = strings.TrimSpace(sub.Message)

	errs := FieldErrors{}
	if sub.Name == "" {
		errs["nombre"] = "Ingresá el nombre del local."
	}
	if !categories.Valid(sub.Category) {
		errs["categoria"] = "Elegí una categoría válida."
	}
	if sub.Contact == "" {
		errs["contacto"] = "Dejanos un teléfono o email de contacto."
	} else if strings.Contains(sub.Contact, "@") {
		if _, err := parseEmail(sub.Contact); err != nil {
			errs["contacto"] = "El email de contacto no es válido."
		}
	}
	if len(errs) > 0 {
		return Receipt{}, errs
	}

	ref := ulid.Make().String()
	c.Close(Local)
	c.logger.Info("local registration received",
		zap.String("reference", ref),
		zap.String("nombre", sub.Name),
		zap.String("categoria", sub.Category),
	)
	return Receipt{Reference: ref, Submission: sub, Message: LocalThanksMessage}, nil
}

func parseEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || !strings.Contains(addr.Address, "@") {
		return "", ErrInvalidEmail
	}
	return addr.Address, nil
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return addr[i+1:]
	}
	return ""
}
