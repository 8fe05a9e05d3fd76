package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BookForge/internal/pkg/apiclient"
	"github.com/ManuelReschke/BookForge/internal/pkg/checkout"
	"github.com/ManuelReschke/BookForge/internal/pkg/payment"
)

func TestTerminalCheckout(t *testing.T) {
	pkg, err := payment.FindPackage("writer")
	require.NoError(t, err)
	order := apiclient.Order{ID: "order_1", Amount: 1200, Currency: "USD"}

	var out bytes.Buffer
	opener := terminalCheckout{p: newPrompter(strings.NewReader("pay_1\nsig_1\n"), &out)}
	res, err := opener.Open(context.Background(), order, pkg)
	require.NoError(t, err)
	assert.Equal(t, &checkout.CheckoutResult{PaymentID: "pay_1", OrderID: "order_1", Signature: "sig_1"}, res)
	assert.Contains(t, out.String(), "150 credits")

	opener = terminalCheckout{p: newPrompter(strings.NewReader("\n"), &out)}
	_, err = opener.Open(context.Background(), order, pkg)
	assert.ErrorIs(t, err, checkout.ErrCheckoutDismissed)

	opener = terminalCheckout{p: newPrompter(strings.NewReader(""), &out)}
	_, err = opener.Open(context.Background(), order, pkg)
	assert.ErrorIs(t, err, checkout.ErrCheckoutDismissed)
}

func TestEmbedCommand(t *testing.T) {
	var out bytes.Buffer
	cli := &studioCLI{out: &out}
	require.NoError(t, cli.embed([]string{"https://youtu.be/dQw4w9WgXcQ"}))
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ\n", out.String())

	assert.Error(t, cli.embed(nil))
}
