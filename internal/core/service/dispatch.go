package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
	"github.com/aretechltd/mospay/internal/metrics"
	"github.com/aretechltd/mospay/internal/procedure"
	"github.com/aretechltd/mospay/internal/wire"
)

// DispatchTimeouts bounds the three remote stages of a dispatch. Procedure
// and Normalize cover backend procedure invocations, Upstream covers the
// microservice call.
type DispatchTimeouts struct {
	Procedure time.Duration
	Upstream  time.Duration
	Normalize time.Duration
}

// DispatchService runs the payment pipeline: resolve the client's binding,
// record the transaction, invoke the forward procedure, call the
// microservice, normalize its response and settle the transaction in a
// terminal state. Every state change goes through the ledger's
// compare-and-swap so concurrent dispatches of the same uniqueId cannot
// interleave.
type DispatchService struct {
	bindings ports.BindingRepository
	ledger   ports.TransactionLedger
	adapters ports.AdapterRegistry
	upstream ports.UpstreamClient
	timeouts DispatchTimeouts
	logger   *slog.Logger
}

func NewDispatchService(
	bindings ports.BindingRepository,
	ledger ports.TransactionLedger,
	adapters ports.AdapterRegistry,
	upstream ports.UpstreamClient,
	timeouts DispatchTimeouts,
	logger *slog.Logger,
) *DispatchService {
	return &DispatchService{
		bindings: bindings,
		ledger:   ledger,
		adapters: adapters,
		upstream: upstream,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Dispatch processes a validated payment request for an authenticated
// client. It returns the response envelope and, when the transaction
// settled in FAILED, the domain error describing why; callers surface both.
// Identity and binding errors are returned before any transaction row
// exists, so rejected requests leave no trace in the ledger.
func (s *DispatchService) Dispatch(ctx context.Context, client *domain.Client, req *domain.PaymentRequest) (*wire.Envelope, error) {
	start := time.Now()
	outcome := "completed"
	defer func() { metrics.RecordDispatch(outcome, time.Since(start)) }()

	names, svc, binding, err := s.resolveBinding(ctx, client, req)
	if err != nil {
		outcome = outcomeOf(err)
		return nil, err
	}

	rawReq, err := wire.EncodeRequest(req)
	if err != nil {
		outcome = "internal"
		return nil, err
	}

	txn := &domain.Transaction{
		UniqueID:       req.UniqueID,
		ClientID:       client.ID,
		BindingID:      binding.ID,
		Status:         domain.StatusReceived,
		Amount:         req.Amount,
		MobileNumber:   req.MobileNumber,
		DeviceID:       req.DeviceID,
		RequestPayload: rawReq,
	}
	current, created, err := s.ledger.CreateIfAbsent(ctx, txn)
	if err != nil {
		outcome = "internal"
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	if !created {
		env, err := s.replay(current, req)
		if err != nil {
			outcome = outcomeOf(err)
		} else {
			outcome = "replayed"
		}
		return env, err
	}

	s.logger.Info("dispatch accepted",
		"unique_id", req.UniqueID,
		"app_id", client.AppID,
		"service", svc.Name,
		"route", req.Route)

	// Ledger bookkeeping must finish even if the caller goes away
	// mid-pipeline; only the remote stages honor caller cancellation.
	bookCtx := context.WithoutCancel(ctx)

	fail := func(from domain.TransactionStatus, derr *domain.Error) (*wire.Envelope, error) {
		outcome = string(derr.Kind)
		return s.settleFailure(bookCtx, from, req, client, derr), derr
	}

	result, err := s.invokeProcedure(ctx, binding.ID, domain.VariantForward, ports.Invocation{
		UniqueID: req.UniqueID,
		Payload:  rawReq,
	})
	if err != nil {
		return fail(domain.StatusReceived, domain.NewProcedureError(names.Forward, err))
	}
	env, err := wire.ParseEnvelope(result)
	if err != nil {
		return fail(domain.StatusReceived, domain.NewProcedureError(names.Forward, err))
	}
	if _, err := s.ledger.Advance(bookCtx, req.UniqueID, domain.StatusReceived, domain.StatusProcedureResolved, domain.TransactionUpdate{}); err != nil {
		outcome = "internal"
		return nil, fmt.Errorf("advance to %s: %w", domain.StatusProcedureResolved, err)
	}

	// A non-SERVICE action means the procedure answered on its own and no
	// microservice is involved; the envelope settles the transaction as-is.
	if !env.IsService() {
		if err := s.complete(bookCtx, req.UniqueID, domain.StatusProcedureResolved, env); err != nil {
			outcome = "internal"
			return nil, err
		}
		s.logger.Info("dispatch completed without upstream call", "unique_id", req.UniqueID, "action", env.Action)
		return env, nil
	}

	// Point of no return: once the upstream call goes out it may move real
	// money, so the rest of the pipeline runs detached from the caller and
	// always reaches a terminal state.
	ctx = bookCtx

	if _, err := s.ledger.Advance(bookCtx, req.UniqueID, domain.StatusProcedureResolved, domain.StatusMicroserviceCalled, domain.TransactionUpdate{}); err != nil {
		outcome = "internal"
		return nil, fmt.Errorf("advance to %s: %w", domain.StatusMicroserviceCalled, err)
	}

	url := binding.ResolveUpstreamURL(env.ServiceURL, svc.ServiceURL)
	callCtx, cancel := context.WithTimeout(ctx, s.timeouts.Upstream)
	callStart := time.Now()
	resp, err := s.upstream.Call(callCtx, url, env.ServicePayload)
	cancel()
	metrics.RecordUpstreamCall(svc.Name, time.Since(callStart))
	if err != nil {
		if upstreamErr, ok := domain.IsUpstreamError(err); ok {
			return fail(domain.StatusMicroserviceCalled, domain.NewUpstreamRejectedError(upstreamErr))
		}
		return fail(domain.StatusMicroserviceCalled, domain.NewUpstreamUnavailableError(err))
	}

	result, err = s.invokeProcedure(ctx, binding.ID, domain.VariantResponse, ports.Invocation{
		UniqueID:       req.UniqueID,
		Payload:        rawReq,
		UpstreamStatus: &resp.StatusCode,
		UpstreamBody:   resp.Body,
	})
	if err != nil {
		return fail(domain.StatusMicroserviceCalled, domain.NewNormalizationError(names.Response, err))
	}
	final, err := wire.ParseEnvelope(result)
	if err != nil {
		return fail(domain.StatusMicroserviceCalled, domain.NewNormalizationError(names.Response, err))
	}

	if _, err := s.ledger.Advance(bookCtx, req.UniqueID, domain.StatusMicroserviceCalled, domain.StatusResponseNormalized, domain.TransactionUpdate{}); err != nil {
		outcome = "internal"
		return nil, fmt.Errorf("advance to %s: %w", domain.StatusResponseNormalized, err)
	}
	if err := s.complete(bookCtx, req.UniqueID, domain.StatusResponseNormalized, final); err != nil {
		outcome = "internal"
		return nil, err
	}

	s.logger.Info("dispatch completed",
		"unique_id", req.UniqueID,
		"service", svc.Name,
		"upstream_status", resp.StatusCode,
		"duration", time.Since(start))
	return final, nil
}

// resolveBinding validates the request's identifier components and walks
// service -> grant -> binding. All failures here happen before any
// transaction exists.
func (s *DispatchService) resolveBinding(ctx context.Context, client *domain.Client, req *domain.PaymentRequest) (*procedure.Names, *domain.Service, *domain.ServiceBinding, error) {
	names, err := procedure.Resolve(req.AppID, req.MicroserviceName, req.Route)
	if err != nil {
		return nil, nil, nil, err
	}
	// f001 travels into procedure payloads, so it gets the same screen even
	// though it plays no part in the procedure name.
	if !procedure.ValidComponent(req.ServiceName) {
		return nil, nil, nil, domain.NewInvalidIdentifierError("serviceName", req.ServiceName)
	}
	if req.AppID != client.AppID {
		return nil, nil, nil, domain.NewAppIDMismatchError()
	}

	svc, err := s.bindings.FindActiveService(ctx, req.MicroserviceName)
	if err != nil {
		if errors.Is(err, ports.ErrServiceNotFound) {
			return nil, nil, nil, domain.NewServiceNotFoundError(req.MicroserviceName)
		}
		return nil, nil, nil, fmt.Errorf("resolve service: %w", err)
	}
	granted, err := s.bindings.HasActiveGrant(ctx, client.ID, svc.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("check service grant: %w", err)
	}
	if !granted {
		return nil, nil, nil, domain.NewAccessDeniedError(svc.Name)
	}
	binding, err := s.bindings.FindActiveBinding(ctx, client.ID, svc.ID, req.Route)
	if err != nil {
		if errors.Is(err, ports.ErrBindingNotFound) {
			return nil, nil, nil, domain.NewBindingNotFoundError(svc.Name, req.Route)
		}
		return nil, nil, nil, fmt.Errorf("resolve binding: %w", err)
	}
	return names, svc, binding, nil
}

// invokeProcedure resolves the registered procedure for the variant and runs
// it through the adapter for its kind under the stage timeout.
func (s *DispatchService) invokeProcedure(ctx context.Context, bindingID uuid.UUID, variant domain.ProcedureVariant, inv ports.Invocation) ([]byte, error) {
	proc, err := s.bindings.FindProcedure(ctx, bindingID, variant)
	if err != nil {
		if errors.Is(err, ports.ErrProcedureNotFound) {
			return nil, fmt.Errorf("no %s procedure registered for binding", variant)
		}
		return nil, fmt.Errorf("resolve %s procedure: %w", variant, err)
	}
	adapter := s.adapters.For(proc.Kind)
	if adapter == nil {
		return nil, fmt.Errorf("no adapter for procedure kind %q", proc.Kind)
	}

	timeout := s.timeouts.Procedure
	if variant == domain.VariantResponse {
		timeout = s.timeouts.Normalize
	}
	invokeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := adapter.Invoke(invokeCtx, proc, inv)
	metrics.RecordProcedure(string(variant), err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// replay serves a repeat dispatch of a settled uniqueId from the ledger.
// Terminal transactions return their stored envelope without touching any
// procedure or microservice; in-flight ones are refused.
func (s *DispatchService) replay(txn *domain.Transaction, req *domain.PaymentRequest) (*wire.Envelope, error) {
	if !txn.IsTerminal() {
		return nil, domain.NewConflictError(req.UniqueID)
	}
	env, err := wire.ParseEnvelope(txn.ResponsePayload)
	if err != nil {
		// A terminal row without a readable envelope should not happen; fall
		// back to a bare error envelope rather than refusing the replay.
		env = wire.NewErrorEnvelope("500", "Stored response unavailable", req.Route, "")
	}
	s.logger.Info("dispatch replayed", "unique_id", req.UniqueID, "status", txn.Status)
	if txn.Status == domain.StatusFailed {
		kind := domain.KindProcedureError
		if txn.FailureKind != nil {
			kind = *txn.FailureKind
		}
		return env, &domain.Error{Kind: kind, Message: env.Message}
	}
	return env, nil
}

// complete encodes the envelope and lands the transaction in COMPLETED.
func (s *DispatchService) complete(ctx context.Context, uniqueID string, from domain.TransactionStatus, env *wire.Envelope) error {
	payload, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode response envelope: %w", err)
	}
	if _, err := s.ledger.Advance(ctx, uniqueID, from, domain.StatusCompleted, domain.TransactionUpdate{ResponsePayload: payload}); err != nil {
		return fmt.Errorf("advance to %s: %w", domain.StatusCompleted, err)
	}
	return nil
}

// settleFailure lands the transaction in FAILED, recording the error kind
// and an error envelope that carries the failure message verbatim. The
// envelope it returns is what the caller sends back.
func (s *DispatchService) settleFailure(ctx context.Context, from domain.TransactionStatus, req *domain.PaymentRequest, client *domain.Client, derr *domain.Error) *wire.Envelope {
	env := wire.NewErrorEnvelope(strconv.Itoa(derr.Kind.HTTPStatus()), derr.Error(), req.Route, client.CompanyName)
	payload, err := env.Encode()
	if err != nil {
		s.logger.Error("failed to encode error envelope", "unique_id", req.UniqueID, "error", err)
		payload = nil
	}
	kind := derr.Kind
	if _, err := s.ledger.Advance(ctx, req.UniqueID, from, domain.StatusFailed, domain.TransactionUpdate{
		ResponsePayload: payload,
		FailureKind:     &kind,
	}); err != nil {
		s.logger.Error("failed to record transaction failure", "unique_id", req.UniqueID, "from", from, "error", err)
	}
	s.logger.Warn("dispatch failed", "unique_id", req.UniqueID, "kind", kind, "error", derr.Error())
	return env
}

func outcomeOf(err error) string {
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal"
}
