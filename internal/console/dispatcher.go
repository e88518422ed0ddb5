package console

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/rileyhilliard/v2dash/internal/logger"
)

// DefaultAlterID pre-fills the create form.
const DefaultAlterID = 64

// Action names an operator command.
type Action string

const (
	ActionCreate     Action = "create"
	ActionDelete     Action = "delete"
	ActionResetStats Action = "reset_stats"
	ActionCredential Action = "credential"
)

// Label is the progress text shown while the action runs.
func (a Action) Label() string {
	switch a {
	case ActionCreate:
		return "Creating account"
	case ActionDelete:
		return "Deleting account"
	case ActionResetStats:
		return "Resetting traffic stats"
	case ActionCredential:
		return "Fetching QR code"
	default:
		return string(a)
	}
}

// Gateway is the subset of api.Client the dispatcher needs.
type Gateway interface {
	CreateAccount(ctx context.Context, req api.CreateAccountRequest) (*api.Account, error)
	DeleteAccount(ctx context.Context, id string) (*api.Ack, error)
	ResetAccountStats(ctx context.Context, id string) (*api.Ack, error)
	AccountQRCode(ctx context.Context, id string) (string, error)
}

// ConfirmFunc asks the operator a yes/no question.
type ConfirmFunc func(prompt string) bool

// ConfirmPrompt is the question asked before a destructive action on the
// account described by subject.
func ConfirmPrompt(action Action, subject string) string {
	switch action {
	case ActionDelete:
		return fmt.Sprintf("Are you sure you want to delete account %s?", subject)
	case ActionResetStats:
		return fmt.Sprintf("Reset traffic stats for account %s?", subject)
	default:
		return fmt.Sprintf("Proceed with %s for %s?", action, subject)
	}
}

// Credential is a decoded QR code ready for the modal.
type Credential struct {
	AccountID string
	Payload   string // base64 as sent by the server
	PNG       []byte
	Source    string // data URI
}

// Outcome is what the operator is told after an action.
type Outcome struct {
	Action     Action
	AccountID  string
	OK         bool
	Canceled   bool
	Message    string
	Detail     string // failure reason, empty on success
	Refresh    bool   // a forced account fetch should follow
	Err        error
	Credential *Credential
}

// Failed reports whether the action was attempted and did not succeed.
func (o Outcome) Failed() bool {
	return !o.OK && !o.Canceled
}

// CreateInput is a validated create request.
type CreateInput struct {
	Name         string
	AlterID      int
	TrafficLimit int64
}

// CreateForm holds the raw operator strings of the create form.
type CreateForm struct {
	Name         string
	AlterID      string
	TrafficLimit string
}

// NewCreateForm returns the form at its defaults.
func NewCreateForm(defaultAlterID int) CreateForm {
	return CreateForm{
		Name:         "",
		AlterID:      strconv.Itoa(defaultAlterID),
		TrafficLimit: "0",
	}
}

// ParseCreateInput validates operator input. An empty alter id or limit
// falls back to the defaults; the limit accepts raw bytes or sizes like
// "10GB" and "500 MiB".
func ParseCreateInput(name, alterID, trafficLimit string) (CreateInput, error) {
	in := CreateInput{
		Name:    strings.TrimSpace(name),
		AlterID: DefaultAlterID,
	}
	if in.Name == "" {
		return CreateInput{}, errNameRequired()
	}

	if s := strings.TrimSpace(alterID); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return CreateInput{}, errors.New(errors.ErrInput,
				fmt.Sprintf("Alter ID must be a whole number, got %q", s),
				"Use a non-negative integer such as 64.")
		}
		in.AlterID = n
	}

	limit, err := ParseTrafficLimit(trafficLimit)
	if err != nil {
		return CreateInput{}, err
	}
	in.TrafficLimit = limit
	if err := in.Validate(); err != nil {
		return CreateInput{}, err
	}
	return in, nil
}

// Validate checks an already-typed input.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errNameRequired()
	}
	if in.AlterID < 0 {
		return errors.New(errors.ErrInput,
			fmt.Sprintf("Alter ID can't be negative, got %d", in.AlterID),
			"Use a non-negative integer such as 64.")
	}
	if in.TrafficLimit < 0 {
		return errNegativeLimit(in.TrafficLimit)
	}
	return nil
}

func errNameRequired() error {
	return errors.New(errors.ErrInput, "Account name is required", "Enter a name for the new account.")
}

func errNegativeLimit(n int64) error {
	return errors.New(errors.ErrInput,
		fmt.Sprintf("Traffic limit can't be negative, got %d", n),
		"Use 0 for unlimited.")
}

// ParseTrafficLimit parses a byte count, where "" and "0" mean unlimited.
// Sizes use the same 1024 scale as FormatBytes, so "10GB" and "10GiB" are
// both 10×1024³ bytes.
func ParseTrafficLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, errNegativeLimit(n)
		}
		return n, nil
	}

	num, unit := splitSize(s)
	binUnit, known := binaryUnits[strings.ToLower(unit)]
	if num == "" || !known {
		return 0, errBadLimit(s)
	}
	if binUnit == "B" && strings.Contains(num, ".") {
		return 0, errors.New(errors.ErrInput,
			fmt.Sprintf("Traffic limit %q is not a whole number of bytes", s),
			"Use a whole byte count, or add a unit such as 1.5GB.")
	}

	n, err := humanize.ParseBytes(num + " " + binUnit)
	if err != nil {
		return 0, errBadLimit(s)
	}
	if n > uint64(1<<63-1) {
		return 0, errors.New(errors.ErrInput,
			fmt.Sprintf("Traffic limit %q is too large", s), "")
	}
	return int64(n), nil
}

// binaryUnits maps accepted size suffixes to their IEC spelling.
var binaryUnits = map[string]string{
	"":    "B",
	"b":   "B",
	"k":   "KiB",
	"kb":  "KiB",
	"kib": "KiB",
	"m":   "MiB",
	"mb":  "MiB",
	"mib": "MiB",
	"g":   "GiB",
	"gb":  "GiB",
	"gib": "GiB",
	"t":   "TiB",
	"tb":  "TiB",
	"tib": "TiB",
}

// splitSize separates "1.5 GB" into "1.5" and "GB".
func splitSize(s string) (num, unit string) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if i < 0 {
		return s, ""
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])
}

func errBadLimit(s string) error {
	return errors.New(errors.ErrInput,
		fmt.Sprintf("Couldn't parse traffic limit %q", s),
		"Use a byte count or a size like 10GB or 500 MB. 0 means unlimited.")
}

// DataURI builds the image source for a base64 PNG payload.
func DataURI(payload string) string {
	return "data:image/png;base64," + payload
}

// Dispatcher runs operator actions against the gateway.
type Dispatcher struct {
	gw             Gateway
	log            logger.Logger
	defaultAlterID int
}

// NewDispatcher creates a dispatcher. A nil logger is replaced by Noop.
func NewDispatcher(gw Gateway, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Noop()
	}
	return &Dispatcher{gw: gw, log: log, defaultAlterID: DefaultAlterID}
}

// SetDefaultAlterID changes what Submit resets the form's alter id to.
func (d *Dispatcher) SetDefaultAlterID(n int) {
	d.defaultAlterID = n
}

// DefaultForm returns a create form at its defaults.
func (d *Dispatcher) DefaultForm() CreateForm {
	return NewCreateForm(d.defaultAlterID)
}

// Submit validates form and creates the account. On success the form is
// reset to its defaults; otherwise it is left untouched for correction.
func (d *Dispatcher) Submit(ctx context.Context, form *CreateForm) Outcome {
	in, err := ParseCreateInput(form.Name, form.AlterID, form.TrafficLimit)
	if err != nil {
		return invalidInput(err)
	}
	out := d.Create(ctx, in)
	if out.OK {
		*form = d.DefaultForm()
	}
	return out
}

// Create submits one creation request.
func (d *Dispatcher) Create(ctx context.Context, in CreateInput) Outcome {
	if err := in.Validate(); err != nil {
		return invalidInput(err)
	}

	created, err := d.gw.CreateAccount(ctx, api.CreateAccountRequest{
		Name:         in.Name,
		AlterID:      in.AlterID,
		TrafficLimit: in.TrafficLimit,
	})
	if err != nil {
		return d.failed(ActionCreate, "", err)
	}

	id := ""
	if created != nil {
		id = created.ID
	}
	d.log.Info("account created name=%q id=%s", in.Name, id)
	return Outcome{
		Action:    ActionCreate,
		AccountID: id,
		OK:        true,
		Message:   "Account created",
		Refresh:   true,
	}
}

// Delete removes an account after the operator confirms.
func (d *Dispatcher) Delete(ctx context.Context, id string, confirm ConfirmFunc) Outcome {
	if !ask(confirm, ConfirmPrompt(ActionDelete, id)) {
		return canceled(ActionDelete, id)
	}

	ack, err := d.gw.DeleteAccount(ctx, id)
	if err != nil {
		return d.failed(ActionDelete, id, err)
	}

	d.log.Info("account deleted id=%s", id)
	return Outcome{
		Action:    ActionDelete,
		AccountID: id,
		OK:        true,
		Message:   ackMessage(ack, "Account deleted"),
		Refresh:   true,
	}
}

// ResetStats zeroes an account's traffic counters after the operator confirms.
func (d *Dispatcher) ResetStats(ctx context.Context, id string, confirm ConfirmFunc) Outcome {
	if !ask(confirm, ConfirmPrompt(ActionResetStats, id)) {
		return canceled(ActionResetStats, id)
	}

	ack, err := d.gw.ResetAccountStats(ctx, id)
	if err != nil {
		return d.failed(ActionResetStats, id, err)
	}

	d.log.Info("traffic stats reset id=%s", id)
	return Outcome{
		Action:    ActionResetStats,
		AccountID: id,
		OK:        true,
		Message:   ackMessage(ack, "Traffic stats reset"),
		Refresh:   true,
	}
}

// FetchCredential downloads and decodes the account's QR code.
func (d *Dispatcher) FetchCredential(ctx context.Context, id string) Outcome {
	payload, err := d.gw.AccountQRCode(ctx, id)
	if err != nil {
		return d.failed(ActionCredential, id, err)
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return d.failed(ActionCredential, id, fmt.Errorf("empty QR code payload"))
	}
	png, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return d.failed(ActionCredential, id, fmt.Errorf("invalid QR code payload: %w", err))
	}

	d.log.Debug("credential fetched id=%s bytes=%d", id, len(png))
	return Outcome{
		Action:    ActionCredential,
		AccountID: id,
		OK:        true,
		Message:   "QR code ready",
		Credential: &Credential{
			AccountID: id,
			Payload:   payload,
			PNG:       png,
			Source:    DataURI(payload),
		},
	}
}

// fallbackMessages are shown when a failure carries no server detail.
var fallbackMessages = map[Action]string{
	ActionCreate:     "Failed to add account",
	ActionDelete:     "Failed to delete account",
	ActionResetStats: "Failed to reset traffic stats",
	ActionCredential: "Failed to generate QR code",
}

func (d *Dispatcher) failed(action Action, id string, err error) Outcome {
	out := Outcome{Action: action, AccountID: id, Err: err}

	f, isFailure := api.AsFailure(err)
	switch {
	case isFailure && !f.IsNetwork() && f.HasDetail():
		out.Detail = f.Detail
		out.Message = "Error: " + f.Detail
	default:
		out.Detail = failureText(err)
		out.Message = fallbackMessages[action]
	}

	d.log.Warn("%s failed id=%s: %v", action, id, err)
	return out
}

func invalidInput(err error) Outcome {
	msg := err.Error()
	if e, ok := err.(*errors.Error); ok {
		msg = e.Message
	}
	return Outcome{
		Action:  ActionCreate,
		Message: "Error: " + msg,
		Detail:  msg,
		Err:     err,
	}
}

func canceled(action Action, id string) Outcome {
	return Outcome{Action: action, AccountID: id, Canceled: true, Message: "Canceled"}
}

func ask(confirm ConfirmFunc, prompt string) bool {
	if confirm == nil {
		return false
	}
	return confirm(prompt)
}

func ackMessage(ack *api.Ack, fallback string) string {
	if ack != nil && ack.Message != "" {
		return ack.Message
	}
	return fallback
}

// FailureKind separates poll failures from operator-action failures.
type FailureKind int

const (
	// TransientReadFailure is a polling read; it is retried on the next tick.
	TransientReadFailure FailureKind = iota + 1
	// MutationFailure is an operator action; it is always reported and never retried.
	MutationFailure
)

func (k FailureKind) String() string {
	switch k {
	case TransientReadFailure:
		return "transient_read"
	case MutationFailure:
		return "mutation"
	default:
		return "unknown"
	}
}

// Classify maps a gateway operation to its failure kind.
func Classify(op string) FailureKind {
	switch op {
	case api.OpSystemStats, api.OpListAccounts, api.OpHealth, api.OpContainerStats, api.OpServerConfig:
		return TransientReadFailure
	default:
		return MutationFailure
	}
}
