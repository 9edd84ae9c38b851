package tui

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thomas/codform-terminal/internal/order"
)

const progressWidth = 30

// View renders the current view.
func (m Model) View() string {
	if m.width == 0 {
		return "Cargando..."
	}

	var content string

	switch m.viewState {
	case ViewCatalog:
		content = m.viewCatalog()
	case ViewCartToken:
		content = m.viewCartToken()
	case ViewSummary:
		content = m.viewSummary()
	case ViewForm:
		content = m.viewForm()
	case ViewSubmitting:
		content = m.viewSubmitting()
	case ViewConfirmation:
		content = m.viewConfirmation()
	}

	return m.styles.App.Render(content)
}

func (m Model) header(title string) string {
	h := m.styles.HeaderTitle.Render(title)
	h += m.styles.Subtle.Render("  " + m.session.Shop)
	return m.styles.Header.Render(h) + "\n"
}

func (m Model) viewCatalog() string {
	var sb strings.Builder

	sb.WriteString(m.header("Pedido contra entrega"))

	switch {
	case m.loadingProducts:
		sb.WriteString(m.spinner.View())
		sb.WriteString(" Cargando productos...")
	case m.err != nil:
		sb.WriteString(m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)))
	default:
		sb.WriteString(m.productList.View())
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render("enter pedir • / buscar • r recargar • q salir"))

	return sb.String()
}

func (m Model) viewCartToken() string {
	var sb strings.Builder

	sb.WriteString(m.header("Pedido del carrito"))

	if m.loadingCart {
		sb.WriteString(m.spinner.View())
		sb.WriteString(" Cargando carrito...")
		return sb.String()
	}

	sb.WriteString("Carrito: ")
	sb.WriteString(m.cartInput.View())
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.HelpBar.Render("enter cargar • esc salir"))
	return sb.String()
}

func (m Model) viewSummary() string {
	b := m.builder
	if b == nil {
		return "No hay pedido abierto"
	}

	var sb strings.Builder
	sb.WriteString(m.header("Resumen del pedido"))

	if m.banner != "" {
		sb.WriteString(m.styles.Banner.Render(m.banner))
		sb.WriteString("\n")
	}

	// Items
	for _, item := range b.Items() {
		line := item.LineTotal(item.Quantity)
		sb.WriteString(m.styles.ItemTitle.Render(item.Title))
		sb.WriteString(m.styles.Subtle.Render(fmt.Sprintf("  %s x%d", b.FormatMoney(item.Price), item.Quantity)))
		sb.WriteString("  ")
		sb.WriteString(m.styles.Price.Render(b.FormatMoney(line)))
		sb.WriteString("\n")
	}

	if qty, ok := b.Quantity(); ok {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s: ‹ %d ›", b.Config().Label(order.FieldQuantity), qty))
		sb.WriteString(m.styles.Subtle.Render("  (+/-)"))
		sb.WriteString("\n")
	}

	// Shipping
	if opts := b.ShippingOptions(); len(opts) > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Subtle.Render("Envío:"))
		sb.WriteString("\n")
		for i, o := range opts {
			price := b.FormatMoney(o.Price)
			if o.IsFree() {
				price = m.styles.FreeBadge.Render("Gratis")
			}
			label := fmt.Sprintf("%s  %s", o.Label, price)
			if o.Detail != "" {
				label += m.styles.Subtle.Render("  " + o.Detail)
			}
			if i == m.shippingIdx {
				sb.WriteString(m.styles.OptionFocus.Render("▸ " + label))
			} else {
				sb.WriteString(m.styles.Option.Render(label))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString(m.viewFreeShipping())

	// Totals
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Subtotal: %s\n", b.FormatMoney(b.Subtotal())))
	if b.ShippingMethod() != "" {
		sb.WriteString(fmt.Sprintf("Envío: %s\n", b.FormatMoney(b.Shipping())))
	}
	if !b.CODFee().IsZero() {
		sb.WriteString(fmt.Sprintf("Cargo contra entrega: %s\n", b.FormatMoney(b.CODFee())))
	}
	sb.WriteString(m.styles.Total.Render(fmt.Sprintf("Total: %s", b.FormatMoney(b.Total()))))
	sb.WriteString("\n")

	if errs := m.viewFieldErrors(); errs != "" {
		sb.WriteString("\n")
		sb.WriteString(errs)
	}

	help := "enter completar datos • ↑/↓ envío • esc cancelar"
	if _, ok := b.Quantity(); ok {
		help = "enter completar datos • +/- cantidad • ↑/↓ envío • esc cancelar"
	}
	sb.WriteString(m.styles.HelpBar.Render(help))

	return m.styles.Box.Render(sb.String())
}

func (m Model) viewFreeShipping() string {
	b := m.builder
	cfg := b.Config()
	if !cfg.FreeShippingEnabled || !cfg.FreeShippingThreshold.GreaterThan(decimal.Zero) {
		return ""
	}

	if b.QualifiesForFreeShipping() {
		return "\n" + m.styles.FreeBadge.Render("¡Tu pedido tiene envío gratis!") + "\n"
	}

	filled := int(b.FreeShippingProgress() * progressWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)
	return fmt.Sprintf("\nTe faltan %s para envío gratis\n%s\n",
		b.FormatMoney(b.AmountToFreeShipping()),
		m.styles.Progress.Render(bar))
}

// viewFieldErrors lists field errors from the last submission attempt.
func (m Model) viewFieldErrors() string {
	if len(m.fieldErrors) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, id := range m.fieldErrors.Fields() {
		if id == order.FormKey {
			continue
		}
		sb.WriteString(m.styles.FieldError.Render(
			fmt.Sprintf("• %s: %s", fieldLabel(m.builder.Config(), id), m.fieldErrors[id])))
		sb.WriteString("\n")
	}
	return sb.String()
}

func fieldLabel(cfg *order.MerchantConfig, id string) string {
	if id == order.FieldTerms {
		return "Términos"
	}
	if order.IsBuiltinField(id) {
		return cfg.Label(id)
	}
	for _, f := range cfg.CustomFields {
		if f.ID == id && f.Label != "" {
			return StripHTML(f.Label)
		}
	}
	return id
}

func (m Model) viewForm() string {
	var sb strings.Builder

	sb.WriteString(m.header("Tus datos"))
	sb.WriteString(m.styles.Total.Render("Total: " + m.builder.FormatMoney(m.builder.Total())))
	sb.WriteString("\n\n")

	if m.form != nil {
		sb.WriteString(m.form.View())
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render("esc volver al resumen"))
	return sb.String()
}

func (m Model) viewSubmitting() string {
	var sb strings.Builder

	sb.WriteString(m.header("Enviando pedido"))
	sb.WriteString(m.spinner.View())
	sb.WriteString(" Creando tu pedido...")

	return m.styles.Box.Render(sb.String())
}

func (m Model) viewConfirmation() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Success.Render("✓ ¡Pedido recibido!"))
	sb.WriteString("\n\n")

	if b := m.builder; b != nil {
		sb.WriteString(fmt.Sprintf("Total a pagar al recibir: %s\n", b.FormatMoney(b.Total())))
		sb.WriteString(m.styles.Subtle.Render("Pedido " + b.SessionID()))
		sb.WriteString("\n\n")
	}

	if m.result != nil {
		sb.WriteString("Confirma tu pedido por WhatsApp:\n")
		sb.WriteString(m.styles.Link.Render(m.result.WhatsAppLink))
		sb.WriteString("\n\n")

		switch {
		case m.copied:
			sb.WriteString(m.styles.Success.Render("Enlace copiado al portapapeles"))
		case m.builder != nil && m.builder.Config().ShouldAutoRedirect() && m.clipboard != nil:
			sb.WriteString(m.styles.Subtle.Render(
				fmt.Sprintf("El enlace se copiará en %s", m.builder.Config().RedirectAfter())))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.HelpBar.Render("c copiar enlace • enter nuevo pedido"))
	return m.styles.Box.Render(sb.String())
}
