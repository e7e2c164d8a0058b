package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantepos/internal/infra"
)

// ── withRetry ───────────────────────────────────────────────────────────────

func TestWithRetry_StopsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, func(attempt int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesUntilSuccess(t *testing.T) {
	var attempts []int
	err := withRetry(context.Background(), 3, func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt == 0 {
			return errors.New("smtp caído")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestWithRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 3, func(attempt int) error {
		calls++
		cancel()
		return errors.New("falla")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// ── Email ───────────────────────────────────────────────────────────────────

type fakeSender struct {
	err  error
	sent []EmailJobPayload
}

func (f *fakeSender) SendFactura(to, subject, body, pdfPath string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, EmailJobPayload{ToEmail: to, Subject: subject, Body: body, PDFPath: pdfPath})
	return nil
}

func payload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestEmailWorker_Envia(t *testing.T) {
	s := &fakeSender{}
	w := NewEmailWorker(s)

	err := w.Process(context.Background(), payload(t, EmailJobPayload{
		ToEmail: "cliente@example.com", Subject: "Factura FAC-202501-000001", PDFPath: "/tmp/f.pdf",
	}))
	require.NoError(t, err)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "cliente@example.com", s.sent[0].ToEmail)
	assert.Equal(t, "/tmp/f.pdf", s.sent[0].PDFPath)
}

func TestEmailWorker_SinDestinatarioNoEnvia(t *testing.T) {
	s := &fakeSender{}
	require.NoError(t, NewEmailWorker(s).Process(context.Background(), payload(t, EmailJobPayload{})))
	assert.Empty(t, s.sent)
}

func TestEmailWorker_SMTPNoConfiguradoNoReintenta(t *testing.T) {
	s := &fakeSender{err: infra.ErrSMTPNoConfigurado}
	err := NewEmailWorker(s).Process(context.Background(), payload(t, EmailJobPayload{ToEmail: "a@b.com"}))
	assert.NoError(t, err)
}

func TestEmailWorker_ErrorDeEnvio(t *testing.T) {
	s := &fakeSender{err: infra.ErrCircuitOpen}
	err := NewEmailWorker(s).Process(context.Background(), payload(t, EmailJobPayload{ToEmail: "a@b.com"}))
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
}

func TestEmailWorker_PayloadInvalido(t *testing.T) {
	err := NewEmailWorker(&fakeSender{}).Process(context.Background(), json.RawMessage(`{"to_email":`))
	assert.Error(t, err)
}

// ── Cron ────────────────────────────────────────────────────────────────────

func TestStartCron_SinSpecNoProgramaNada(t *testing.T) {
	c, err := StartCron(context.Background(), CronConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestStartCron_SpecInvalido(t *testing.T) {
	_, err := StartCron(context.Background(), CronConfig{Spec: "cada tanto"})
	assert.Error(t, err)
}

func TestStartCron_SeDetieneConElContexto(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := StartCron(ctx, CronConfig{Spec: "@every 1h"})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	cancel()
}

func TestRunTareas(t *testing.T) {
	var reconciliadas, consultas int
	cfg := CronConfig{
		Reconciliar: func(context.Context) (int, error) { reconciliadas++; return 2, nil },
		BajoStock:   func(context.Context) (int, error) { consultas++; return 0, errors.New("db caída") },
	}

	runTareas(context.Background(), cfg)
	assert.Equal(t, 1, reconciliadas)
	assert.Equal(t, 1, consultas)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runTareas(ctx, cfg)
	assert.Equal(t, 1, reconciliadas, "con el contexto cancelado no corre")

	assert.NotPanics(t, func() { runTareas(context.Background(), CronConfig{}) })
}
