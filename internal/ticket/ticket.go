// Package ticket renders sale receipts as plain text for 80mm thermal printers.
package ticket

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultWidth is the character width of an 80mm roll in the printer's default font.
const DefaultWidth = 42

type Options struct {
	Width    int
	Location *time.Location
	Footer   []string
}

func DefaultOptions() Options {
	return Options{
		Width:    DefaultWidth,
		Location: time.Local,
		Footer:   []string{"¡Gracias por su compra!"},
	}
}

var paymentLabels = map[domain.PaymentMethod]string{
	domain.PaymentCash:             "Efectivo",
	domain.PaymentNequi:            "Nequi",
	domain.PaymentDaviplata:        "Daviplata",
	domain.PaymentLlaveBancolombia: "Llave Bancolombia",
	domain.PaymentCard:             "Tarjeta",
	domain.PaymentTransfer:         "Transferencia",
}

// PaymentLabel is the printed name of a payment method; unknown tokens print as-is.
func PaymentLabel(m domain.PaymentMethod) string {
	if l, ok := paymentLabels[m]; ok {
		return l
	}
	return string(m)
}

var printer = message.NewPrinter(language.MustParse("es-CO"))

func money(d decimal.Decimal) string {
	return "$" + printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
}

// Render lays out a receipt. Discount and tax rows appear only when non-zero.
func Render(r domain.Receipt, opts Options) string {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	w := &writer{width: opts.Width}

	header := r.StoreName
	if header == "" {
		header = r.StoreID
	}
	w.center(strings.ToUpper(header))
	w.rule()

	w.row("Fecha:", r.CompletedAt.In(opts.Location).Format("02/01/2006 15:04"))
	if r.SaleID != "" {
		w.row("Ticket:", "#"+shortID(r.SaleID))
	}
	w.row("Pago:", PaymentLabel(r.PaymentMethod))
	w.rule()

	for _, li := range r.Items {
		w.line(li.Name)
		w.row(fmt.Sprintf("  %d x %s", li.Quantity, money(li.UnitPrice)), money(li.Subtotal))
	}
	for _, li := range r.Freebies {
		w.line(li.Name + " (ñapa)")
		w.row(fmt.Sprintf("  %d x %s", li.Quantity, money(decimal.Zero)), money(decimal.Zero))
	}
	w.rule()

	w.row("Subtotal:", money(r.Subtotal))
	if !r.Discount.IsZero() {
		w.row("Descuento:", "-"+money(r.Discount))
	}
	if !r.Tax.IsZero() {
		w.row("IVA:", money(r.Tax))
	}
	w.row("TOTAL:", money(r.Total))

	if r.Notes != "" {
		w.rule()
		w.line("Nota: " + r.Notes)
	}

	w.rule()
	for _, f := range opts.Footer {
		w.center(f)
	}
	return w.String()
}

// shortID is the last eight characters of the sale id, upper-cased.
func shortID(id string) string {
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return strings.ToUpper(id)
}

type writer struct {
	strings.Builder
	width int
}

func (w *writer) line(s string) {
	w.WriteString(truncate(s, w.width))
	w.WriteByte('\n')
}

func (w *writer) rule() {
	w.line(strings.Repeat("-", w.width))
}

func (w *writer) center(s string) {
	s = truncate(s, w.width)
	pad := (w.width - utf8.RuneCountInString(s)) / 2
	w.line(strings.Repeat(" ", pad) + s)
}

// row puts label on the left and value flush right.
func (w *writer) row(label, value string) {
	gap := w.width - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if gap < 1 {
		w.line(label)
		w.line(strings.Repeat(" ", max(0, w.width-utf8.RuneCountInString(value))) + value)
		return
	}
	w.line(label + strings.Repeat(" ", gap) + value)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
