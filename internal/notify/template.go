package notify

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/a2h-store/api/internal/services"
)

// The confirmation body is Arabic-first with an English echo, matching the
// storefront. dir="rtl" keeps mixed Latin plan names readable.
var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Parse(`<!DOCTYPE html>
<html dir="rtl" lang="ar">
<body style="font-family: Tahoma, Arial, sans-serif; margin: 0; background: #f6f6f6; padding: 24px;">
  <div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 24px;">
    <h2 style="margin-top: 0;">شكراً لطلبك، {{.FullName}}</h2>
    <p>استلمنا طلبك رقم <strong dir="ltr">{{.OrderID}}</strong> وهو الآن قيد المراجعة. سيتم تفعيل اشتراكك بعد التحقق من التحويل البنكي.</p>
    <table style="width: 100%; border-collapse: collapse; margin: 16px 0;">
      {{range .Items}}
      <tr>
        <td style="padding: 8px 0; border-bottom: 1px solid #eee;">{{.ProductName}} — {{.Duration}} × {{.Quantity}}</td>
        <td style="padding: 8px 0; border-bottom: 1px solid #eee; text-align: left;" dir="ltr">{{.LineTotal}}</td>
      </tr>
      {{end}}
      <tr>
        <td style="padding: 12px 0; font-weight: bold;">الإجمالي</td>
        <td style="padding: 12px 0; font-weight: bold; text-align: left;" dir="ltr">{{.Total}}</td>
      </tr>
    </table>
    <p style="color: #666;">We received your order <span dir="ltr">{{.OrderID}}</span>. Your subscription will be activated once the bank transfer is verified.</p>
  </div>
</body>
</html>`))

type confirmationItem struct {
	ProductName string
	Duration    string
	Quantity    int
	LineTotal   string
}

type confirmationData struct {
	OrderID  string
	FullName string
	Items    []confirmationItem
	Total    string
}

func renderOrderConfirmation(order services.Order) (string, error) {
	data := confirmationData{
		OrderID:  order.ID,
		FullName: order.FullName,
		Total:    formatAmount(order.Amount, order.CurrencyCode, order.CurrencySymbol),
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, confirmationItem{
			ProductName: item.ProductName,
			Duration:    item.Duration,
			Quantity:    item.Quantity,
			LineTotal:   formatAmount(item.LineTotal, "SAR", "ر.س"),
		})
	}

	var b strings.Builder
	if err := orderConfirmationTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func formatAmount(amount float64, code, symbol string) string {
	if symbol == "" {
		symbol = code
	}
	switch code {
	case "USD", "EUR":
		return fmt.Sprintf("%s%.2f", symbol, amount)
	default:
		return fmt.Sprintf("%.2f %s", amount, symbol)
	}
}
