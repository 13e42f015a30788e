package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/okian/beatpage/internal/adapters/blob"
	"github.com/okian/beatpage/internal/domain/model"
	"github.com/okian/beatpage/internal/domain/types"
	"github.com/okian/beatpage/pkg/logger"
	"github.com/okian/beatpage/pkg/metrics"
)

const msgProfileUnavailable = "Failed to load profile"

// Upload is one file handed to the upload control or dropped on the page.
type Upload struct {
	Name        string
	ContentType string
	// Size is the byte count of Body, or -1 when unknown.
	Size int64
	Body io.Reader
}

// PaymentForm is the state of the top-up panel.
type PaymentForm struct {
	Open       bool
	Amount     float64
	CardNumber string
}

// PaymentView is the rendered payment panel. The card number never leaves
// the page unmasked.
type PaymentView struct {
	Open       bool    `json:"open"`
	Amount     float64 `json:"amount"`
	CardMasked string  `json:"cardMasked,omitempty"`
}

// View is one render of the page. Only the fields of the active state are
// populated.
type View struct {
	State   types.ViewState `json:"state"`
	Message string          `json:"message,omitempty"`
	Profile *model.Profile  `json:"profile,omitempty"`
	Tracks  []model.Track   `json:"tracks,omitempty"`
	Editing bool            `json:"editing,omitempty"`
	Payment *PaymentView    `json:"payment,omitempty"`
}

// contentView is the wire shape of the content state, where the track list
// and editing flag are always present.
type contentView struct {
	State   types.ViewState `json:"state"`
	Profile *model.Profile  `json:"profile"`
	Tracks  []model.Track   `json:"tracks"`
	Editing bool            `json:"editing"`
	Payment *PaymentView    `json:"payment"`
}

// MarshalJSON writes only the fields of the active state.
func (v View) MarshalJSON() ([]byte, error) {
	if v.State != types.ViewContent {
		type plain View
		return json.Marshal(plain(v))
	}
	tracks := v.Tracks
	if tracks == nil {
		tracks = []model.Track{}
	}
	return json.Marshal(contentView{
		State:   v.State,
		Profile: v.Profile,
		Tracks:  tracks,
		Editing: v.Editing,
		Payment: v.Payment,
	})
}

// Page is a mounted profile view for one user. User intents are applied
// one at a time so a batch of files reaches the store in order.
type Page struct {
	mu      sync.RWMutex
	actions sync.Mutex

	hook        *Hook
	blobs       blob.Store
	placeholder string
	logger      logger.Logger

	mounted string
	editing bool
	payment PaymentForm

	ready     chan struct{}
	readyOnce sync.Once
}

// PageOption applies a configuration option to the Page.
type PageOption func(*Page)

// WithBlobStore archives uploaded bytes after each track is written.
func WithBlobStore(b blob.Store) PageOption {
	return func(p *Page) {
		p.blobs = b
	}
}

// WithPlaceholderImage sets the image attached to uploaded tracks.
func WithPlaceholderImage(url string) PageOption {
	return func(p *Page) {
		if url != "" {
			p.placeholder = url
		}
	}
}

// WithPageLogger sets the page logger.
func WithPageLogger(l logger.Logger) PageOption {
	return func(p *Page) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPage creates an unmounted page over hook.
func NewPage(hook *Hook, opts ...PageOption) *Page {
	p := &Page{
		hook:        hook,
		placeholder: model.PlaceholderImage,
		logger:      logger.Nop(),
		ready:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Hook exposes the page's data hook.
func (p *Page) Hook() *Hook { return p.hook }

// Ready is closed once the first Load settles.
func (p *Page) Ready() <-chan struct{} { return p.ready }

// Mount loads userID unless it is already the mounted user.
func (p *Page) Mount(ctx context.Context, userID string) {
	p.mu.Lock()
	if p.mounted == userID && p.mounted != "" {
		p.mu.Unlock()
		return
	}
	p.mounted = userID
	p.mu.Unlock()

	p.hook.Load(ctx, userID)
	p.readyOnce.Do(func() { close(p.ready) })
}

// UserID returns the mounted user.
func (p *Page) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mounted
}

// Render picks exactly one of loading, error or content. The error branch
// is checked only after loading settles.
func (p *Page) Render() View {
	st := p.hook.State()
	if st.Loading {
		return View{State: types.ViewLoading}
	}
	if st.Error != "" || st.Profile == nil {
		msg := st.Error
		if msg == "" {
			msg = msgProfileUnavailable
		}
		return View{State: types.ViewError, Message: msg}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return View{
		State:   types.ViewContent,
		Profile: st.Profile,
		Tracks:  st.Tracks,
		Editing: p.editing,
		Payment: &PaymentView{
			Open:       p.payment.Open,
			Amount:     p.payment.Amount,
			CardMasked: maskCard(p.payment.CardNumber),
		},
	}
}

// Payment returns the current payment form.
func (p *Page) Payment() PaymentForm {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.payment
}

// OpenPayment shows the payment panel.
func (p *Page) OpenPayment() {
	p.mu.Lock()
	p.payment.Open = true
	p.mu.Unlock()
}

// ClosePayment hides the panel and keeps whatever was typed.
func (p *Page) ClosePayment() {
	p.mu.Lock()
	p.payment.Open = false
	p.mu.Unlock()
}

// SetPayment fills the payment form.
func (p *Page) SetPayment(amount float64, cardNumber string) {
	p.mu.Lock()
	p.payment.Amount = amount
	p.payment.CardNumber = cardNumber
	p.mu.Unlock()
}

// SubmitPayment adds the entered amount to the balance. The form is
// cleared and the panel closed only when the update succeeds. Amounts are
// not validated and the card number is never sent anywhere.
func (p *Page) SubmitPayment(ctx context.Context) bool {
	p.actions.Lock()
	defer p.actions.Unlock()

	st := p.hook.State()
	if st.Profile == nil {
		return false
	}
	form := p.Payment()

	ok := p.hook.UpdateProfile(ctx, model.BalancePatch(st.Profile.Balance+form.Amount))
	metrics.RecordPayment(ok)
	if !ok {
		return false
	}

	p.mu.Lock()
	p.payment = PaymentForm{}
	p.mu.Unlock()
	p.logger.Info(ctx, "balance topped up",
		logger.String("user", p.hook.UserID()),
		logger.Float64("amount", form.Amount),
	)
	return true
}

// ToggleEditing flips editing mode and reports the new value.
func (p *Page) ToggleEditing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editing = !p.editing
	return p.editing
}

// Editing reports whether editing mode is on.
func (p *Page) Editing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.editing
}

// EditProfile writes a field-level edit.
func (p *Page) EditProfile(ctx context.Context, patch model.ProfilePatch) bool {
	p.actions.Lock()
	defer p.actions.Unlock()
	return p.hook.UpdateProfile(ctx, patch)
}

// UploadFiles handles the file picker.
func (p *Page) UploadFiles(ctx context.Context, files []Upload) []model.Track {
	return p.addFiles(ctx, types.SourceUpload, files)
}

// DropFiles handles files dropped on the page. It behaves exactly like
// UploadFiles.
func (p *Page) DropFiles(ctx context.Context, files []Upload) []model.Track {
	return p.addFiles(ctx, types.SourceDrop, files)
}

// addFiles creates one track per file, each write finishing before the
// next starts. A failed file does not stop the batch.
func (p *Page) addFiles(ctx context.Context, source types.TrackSource, files []Upload) []model.Track {
	p.actions.Lock()
	defer p.actions.Unlock()

	added := make([]model.Track, 0, len(files))
	for _, f := range files {
		track, ok := p.hook.AddTrack(ctx, model.TrackFromFile(f.Name, p.placeholder))
		metrics.RecordTrackAdded(string(source), ok)
		if !ok {
			continue
		}
		added = append(added, track)
		p.archive(ctx, track, f)
	}
	return added
}

func (p *Page) archive(ctx context.Context, track model.Track, f Upload) {
	if p.blobs == nil || f.Body == nil {
		return
	}
	key, err := blob.AudioKey(p.hook.UserID(), track.ID, f.Name)
	if err == nil {
		err = p.blobs.Put(ctx, key, f.Body, f.Size, f.ContentType)
	}
	metrics.RecordBlobArchive(err == nil, f.Size)
	if err != nil {
		p.logger.Warn(ctx, "archive upload failed",
			logger.String("key", key),
			logger.Error(err),
		)
	}
}

func maskCard(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return "**** " + digits[len(digits)-4:]
}
