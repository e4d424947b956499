package chi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/logger"
	searchuc "github.com/kailas-cloud/posedex/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	// Order matters: a remote dimension mismatch is also a transport error, and
	// "no comparable entries" is also a corpus error.
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeInvalidInput),
		sentinelHandler(domain.ErrDecode, http.StatusBadRequest, ErrorCodeDecodeFailed),
		sentinelHandler(domain.ErrNoSubjectDetected, http.StatusUnprocessableEntity, ErrorCodeNoSubjectDetected),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError, ErrorCodeVectorDimMismatch),
		transportHandler,
		sentinelHandler(domain.ErrNoComparableEntries, http.StatusUnprocessableEntity, ErrorCodeNoComparableEntries),
		sentinelHandler(domain.ErrCorpus, http.StatusServiceUnavailable, ErrorCodeCorpusUnavailable),
		sentinelHandler(domain.ErrHydrationExhausted, http.StatusBadGateway, ErrorCodeHydrationExhausted),
		sentinelHandler(domain.ErrEntryNotFound, http.StatusNotFound, ErrorCodeNotFound),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, clientMessage(err))
		return true
	}
}

// transportHandler reports failing inference services without leaking upstream bodies.
func transportHandler(w http.ResponseWriter, err error) bool {
	var te *domain.TransportError
	if !errors.As(err, &te) {
		if !errors.Is(err, domain.ErrTransport) {
			return false
		}
		writeError(w, http.StatusBadGateway, ErrorCodeInferenceError, domain.ErrTransport.Error())
		return true
	}
	msg := domain.ErrTransport.Error() + ": " + te.Service + " " + te.Op
	if te.StatusCode != 0 {
		msg += ": upstream returned " + strconv.Itoa(te.StatusCode)
	} else if isTimeout(te.Err) {
		msg += ": timeout"
	}
	writeError(w, http.StatusBadGateway, ErrorCodeInferenceError, msg)
	return true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// clientMessage strips the pipeline stage prefix from err.
func clientMessage(err error) string {
	var se *searchuc.StageError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	if r.Context().Err() != nil {
		log.Info("request canceled", zap.Error(err))
	} else {
		log.Error("internal error", zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
