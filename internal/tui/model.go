package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/thomas/codform-terminal/internal/metrics"
	"github.com/thomas/codform-terminal/internal/order"
	"github.com/thomas/codform-terminal/internal/storefront"
)

// MsgOrderFailed is the single banner shown for any submission failure.
const MsgOrderFailed = "No pudimos crear tu pedido. Intenta de nuevo."

const (
	trackTimeout  = 5 * time.Second
	submitTimeout = 30 * time.Second
	loadTimeout   = 15 * time.Second
)

// ViewState represents the current view in the application.
type ViewState int

const (
	ViewCatalog ViewState = iota
	ViewCartToken
	ViewSummary
	ViewForm
	ViewSubmitting
	ViewConfirmation
)

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Dependencies
	client    *storefront.Client
	session   *Session
	metrics   *metrics.Metrics
	logger    *log.Logger
	clipboard io.Writer

	// View state
	viewState ViewState
	width     int
	height    int
	styles    Styles
	spinner   spinner.Model

	// Catalog
	productList     list.Model
	products        []storefront.Product
	loadingProducts bool

	// Cart mode
	cartInput   textinput.Model
	loadingCart bool

	// Open order. Dismissing the form drops the builder.
	builder     *order.Builder
	values      *formValues
	form        *huh.Form
	fieldErrors order.ValidationErrors
	banner      string
	shippingIdx int

	// Confirmation
	result *storefront.OrderResult
	copied bool

	err error
}

// Option configures a Model.
type Option func(*Model)

// WithMetrics records form and submission counters.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Model) {
		m.metrics = mt
	}
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithClipboard sets where the OSC 52 copy sequence for the WhatsApp link
// is written, normally the SSH session.
func WithClipboard(w io.Writer) Option {
	return func(m *Model) {
		m.clipboard = w
	}
}

// productItem implements list.Item for products.
type productItem struct {
	product  storefront.Product
	currency string
}

func (i productItem) Title() string {
	return i.product.Title
}

func (i productItem) Description() string {
	desc := order.FormatMoney(i.product.Price(), i.currency)
	if v, ok := i.product.DefaultVariant(); ok && !v.Available {
		desc += " • Agotado"
	}
	return desc
}

func (i productItem) FilterValue() string {
	return i.product.Title
}

// Messages
type (
	productsLoadedMsg struct {
		products []storefront.Product
	}
	cartLoadedMsg struct {
		items    []order.CartItem
		currency string
	}
	orderCreatedMsg struct {
		result *storefront.OrderResult
	}
	orderFailedMsg struct {
		err error
	}
	redirectMsg struct {
		orderID string
	}
	errMsg struct {
		err error
	}
)

type linkCopiedMsg struct{}

// NewModel creates the model for one SSH session.
func NewModel(client *storefront.Client, session *Session, opts ...Option) Model {
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorBrand)

	ti := textinput.New()
	ti.Placeholder = "Token del carrito"
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(colorAccent).
		BorderLeftForeground(colorAccent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(colorBrandDark).
		BorderLeftForeground(colorAccent)

	productList := list.New([]list.Item{}, delegate, 0, 0)
	productList.Title = "Productos"
	productList.SetShowHelp(false)
	productList.SetFilteringEnabled(true)
	productList.Styles.Title = styles.ListTitle

	m := Model{
		client:      client,
		session:     session,
		logger:      log.Default(),
		viewState:   ViewCatalog,
		styles:      styles,
		spinner:     sp,
		productList: productList,
		cartInput:   ti,
	}
	for _, opt := range opts {
		opt(&m)
	}

	if session.Mode == ModeCart {
		m.viewState = ViewCartToken
		if session.CartToken != "" {
			m.cartInput.SetValue(session.CartToken)
			m.loadingCart = true
		}
	} else {
		m.loadingProducts = true
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	switch {
	case m.session.Mode == ModeProduct:
		return tea.Batch(m.spinner.Tick, m.loadProducts())
	case m.loadingCart:
		return tea.Batch(m.spinner.Tick, m.loadCart(m.session.CartToken))
	}
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.productList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.viewState != ViewForm {
			return m.handleKeyMsg(msg)
		}
		if msg.String() == "esc" {
			m.form = nil
			m.viewState = ViewSummary
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case productsLoadedMsg:
		m.loadingProducts = false
		m.err = nil
		m.products = msg.products
		m.updateProductList()

	case cartLoadedMsg:
		m.loadingCart = false
		return m.openOrder(msg.items, msg.currency)

	case orderCreatedMsg:
		return m.handleOrderCreated(msg.result)

	case orderFailedMsg:
		m.builder.FailSubmission()
		m.banner = MsgOrderFailed
		m.viewState = ViewSummary
		m.metrics.Submission(metrics.OutcomeFailed)
		m.logger.Warn("order submission failed", "order", m.builder.SessionID(), "err", msg.err)
		return m, nil

	case redirectMsg:
		if m.viewState == ViewConfirmation && m.builder != nil && msg.orderID == m.builder.SessionID() {
			return m, m.copyLink()
		}
		return m, nil

	case linkCopiedMsg:
		m.copied = true
		return m, nil

	case errMsg:
		m.err = msg.err
		m.loadingProducts = false
		m.loadingCart = false
	}

	switch m.viewState {
	case ViewCatalog:
		var cmd tea.Cmd
		m.productList, cmd = m.productList.Update(msg)
		cmds = append(cmds, cmd)

	case ViewCartToken:
		var cmd tea.Cmd
		m.cartInput, cmd = m.cartInput.Update(msg)
		cmds = append(cmds, cmd)

	case ViewForm:
		if m.form != nil {
			form, cmd := m.form.Update(msg)
			if f, ok := form.(*huh.Form); ok {
				m.form = f
			}
			cmds = append(cmds, cmd)
			if m.form.State == huh.StateCompleted {
				return m.submit()
			}
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewState {
	case ViewCatalog:
		return m.handleCatalogKeys(msg)
	case ViewCartToken:
		return m.handleCartTokenKeys(msg)
	case ViewSummary:
		return m.handleSummaryKeys(msg)
	case ViewConfirmation:
		return m.handleConfirmationKeys(msg)
	}
	return m, nil
}

func (m Model) handleCatalogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.productList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.productList, cmd = m.productList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		m.loadingProducts = true
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.loadProducts())
	case "enter":
		item, ok := m.productList.SelectedItem().(productItem)
		if !ok {
			return m, nil
		}
		return m.openOrder([]order.CartItem{item.product.CartItem()}, "")
	}

	var cmd tea.Cmd
	m.productList, cmd = m.productList.Update(msg)
	return m, cmd
}

func (m Model) handleCartTokenKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loadingCart {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "enter":
		token := m.cartInput.Value()
		if token == "" {
			return m, nil
		}
		m.loadingCart = true
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.loadCart(token))
	}

	var cmd tea.Cmd
	m.cartInput, cmd = m.cartInput.Update(msg)
	return m, cmd
}

func (m Model) handleSummaryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := m.builder

	switch msg.String() {
	case "+", "=", "right", "l":
		b.IncrementQuantity()
		m.syncShippingCursor()
	case "-", "left", "h":
		b.DecrementQuantity()
		m.syncShippingCursor()
	case "up", "k":
		m.moveShipping(-1)
	case "down", "j":
		m.moveShipping(1)
	case "enter", "f":
		return m.openForm()
	case "esc", "q":
		m.closeOrder()
	}
	return m, nil
}

func (m Model) handleConfirmationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "c":
		return m, m.copyLink()
	case "enter", "esc", "q":
		m.closeOrder()
	}
	return m, nil
}

// openOrder starts a new order form for items.
func (m Model) openOrder(items []order.CartItem, currency string) (tea.Model, tea.Cmd) {
	b, err := m.session.OpenOrder(items, currency)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.builder = b
	m.values = newFormValues(b)
	m.form = nil
	m.fieldErrors = nil
	m.banner = ""
	m.result = nil
	m.copied = false
	m.err = nil
	m.syncShippingCursor()
	m.viewState = ViewSummary

	m.metrics.FormOpened(string(m.session.Mode))
	m.logger.Info("form opened", "order", b.SessionID(), "items", len(items), "currency", b.Currency())

	return m, m.trackOpen(m.session.OpenEvent(b))
}

// closeOrder discards the open order and returns to the start view.
func (m *Model) closeOrder() {
	m.builder = nil
	m.values = nil
	m.form = nil
	m.fieldErrors = nil
	m.banner = ""
	m.result = nil
	m.copied = false

	if m.session.Mode == ModeCart {
		m.viewState = ViewCartToken
	} else {
		m.viewState = ViewCatalog
	}
}

func (m Model) openForm() (tea.Model, tea.Cmd) {
	m.form = buildForm(m.builder, m.values, m.session.Provinces(), m.fieldErrors)
	m.viewState = ViewForm
	return m, m.form.Init()
}

// submit pushes the form values into the builder and posts the order when
// they validate.
func (m Model) submit() (tea.Model, tea.Cmd) {
	m.form = nil
	m.values.apply(m.builder)

	req, err := m.builder.Submit()

	var verrs order.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		m.fieldErrors = verrs
		m.banner = verrs[order.FormKey]
		m.viewState = ViewSummary
		m.metrics.Invalid(verrs.Fields())
		m.logger.Debug("order invalid", "order", m.builder.SessionID(), "fields", verrs.Fields())
		return m, nil
	case err != nil:
		m.banner = MsgOrderFailed
		m.viewState = ViewSummary
		m.metrics.Submission(metrics.OutcomeRejected)
		m.logger.Error("building order request", "order", m.builder.SessionID(), "err", err)
		return m, nil
	}

	m.fieldErrors = nil
	m.banner = ""
	m.viewState = ViewSubmitting
	return m, tea.Batch(m.spinner.Tick, m.createOrder(req))
}

func (m Model) handleOrderCreated(res *storefront.OrderResult) (tea.Model, tea.Cmd) {
	m.builder.CompleteSubmission()
	m.result = res
	m.viewState = ViewConfirmation
	m.metrics.Submission(metrics.OutcomeCreated)
	m.logger.Info("order created",
		"order", m.builder.SessionID(),
		"total", m.builder.FormatMoney(m.builder.Total()),
		"shipping", m.builder.ShippingMethod())

	cfg := m.builder.Config()
	if !cfg.ShouldAutoRedirect() {
		return m, nil
	}
	id := m.builder.SessionID()
	return m, tea.Tick(cfg.RedirectAfter(), func(time.Time) tea.Msg {
		return redirectMsg{orderID: id}
	})
}

// moveShipping moves the shipping cursor by delta and selects the option
// under it.
func (m *Model) moveShipping(delta int) {
	opts := m.builder.ShippingOptions()
	if len(opts) == 0 {
		return
	}
	idx := m.shippingIdx + delta
	if idx < 0 || idx >= len(opts) {
		return
	}
	if m.builder.SelectShippingMethod(opts[idx].ID) {
		m.shippingIdx = idx
	}
}

// syncShippingCursor points the cursor at the builder's current method.
func (m *Model) syncShippingCursor() {
	m.shippingIdx = 0
	for i, o := range m.builder.ShippingOptions() {
		if o.ID == m.builder.ShippingMethod() {
			m.shippingIdx = i
			return
		}
	}
}

func (m *Model) updateProductList() {
	items := make([]list.Item, len(m.products))
	for i, p := range m.products {
		items[i] = productItem{product: p, currency: m.session.Bootstrap.Currency}
	}
	m.productList.SetItems(items)
}

// Commands

func (m Model) loadProducts() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		products, err := client.ListProducts(ctx)
		if err != nil {
			return errMsg{err: fmt.Errorf("cargando productos: %w", err)}
		}
		return productsLoadedMsg{products: products}
	}
}

func (m Model) loadCart(token string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		items, currency, err := client.GetCart(ctx, token)
		if err != nil {
			return errMsg{err: fmt.Errorf("cargando carrito: %w", err)}
		}
		if len(items) == 0 {
			return errMsg{err: order.ErrEmptyCart}
		}
		return cartLoadedMsg{items: items, currency: currency}
	}
}

func (m Model) trackOpen(ev storefront.OpenEvent) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
		defer cancel()

		client.TrackOpen(ctx, ev)
		return nil
	}
}

func (m Model) createOrder(req *order.OrderRequest) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		res, err := client.CreateOrder(ctx, req)
		if err != nil {
			return orderFailedMsg{err: err}
		}
		return orderCreatedMsg{result: res}
	}
}

// copyLink writes the WhatsApp link to the client clipboard with OSC 52.
func (m Model) copyLink() tea.Cmd {
	if m.clipboard == nil || m.result == nil {
		return nil
	}
	w, link, logger := m.clipboard, m.result.WhatsAppLink, m.logger
	return func() tea.Msg {
		if _, err := osc52.New(link).WriteTo(w); err != nil {
			logger.Debug("osc52 copy failed", "err", err)
			return nil
		}
		return linkCopiedMsg{}
	}
}

// GetViewState returns the current view state (for testing).
func (m Model) GetViewState() ViewState {
	return m.viewState
}

// Builder returns the open order, if any.
func (m Model) Builder() *order.Builder {
	return m.builder
}
