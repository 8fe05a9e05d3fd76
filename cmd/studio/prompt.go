package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ManuelReschke/BookForge/internal/pkg/apiclient"
	"github.com/ManuelReschke/BookForge/internal/pkg/checkout"
	"github.com/ManuelReschke/BookForge/internal/pkg/payment"
)

// prompter reads answers line by line from the terminal.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(r io.Reader, w io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(r), w: w}
}

// Ask prints question and returns the trimmed answer. EOF yields "".
func (p *prompter) Ask(question string) string {
	fmt.Fprint(p.w, question)
	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// terminalCheckout asks the user to pay the order in the hosted checkout and
// paste the callback values. An empty payment id dismisses the checkout.
type terminalCheckout struct {
	p *prompter
}

func (t terminalCheckout) Open(ctx context.Context, order apiclient.Order, pkg payment.Package) (*checkout.CheckoutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fmt.Fprintf(t.p.w, "Order %s: %s package, %d credits, %d %s (minor units)\n",
		order.ID, pkg.Name, pkg.Credits, order.Amount, order.Currency)
	fmt.Fprintln(t.p.w, "Complete the payment in the checkout, then paste the values it returns.")

	paymentID := t.p.Ask("Payment ID (empty to cancel): ")
	if paymentID == "" {
		return nil, checkout.ErrCheckoutDismissed
	}
	signature := t.p.Ask("Signature: ")
	return &checkout.CheckoutResult{PaymentID: paymentID, OrderID: order.ID, Signature: signature}, nil
}
