// Package server is the HTTP upload boundary: audio goes in, a call
// record or a machine-readable error comes out.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vijay-svsk/call-summarizer/apperr"
	"github.com/vijay-svsk/call-summarizer/audio"
	cfg "github.com/vijay-svsk/call-summarizer/config"
	"github.com/vijay-svsk/call-summarizer/report"
)

const (
	pathHealth  = "/health_check"
	pathProcess = "/process_call"
	pathHistory = "/customers/:name/calls"
)

// Analyzer runs the pipeline over one asset. *orchestrator.Pipeline
// implements it.
type Analyzer interface {
	Run(ctx context.Context, a *audio.Asset) (*report.Record, error)
}

// Repository stores and lists records per customer. *store.DB implements it.
type Repository interface {
	Store(ctx context.Context, customer string, rec *report.Record) (string, error)
	FetchByCustomer(ctx context.Context, customer string) ([]*report.Record, error)
}

type Server struct {
	engine   *gin.Engine
	http     *http.Server
	cfg      *cfg.Root
	analyzer Analyzer
	repo     Repository
	log      logrus.FieldLogger
}

// New builds the routes. repo may be nil, in which case uploads are not
// stored and history is unavailable.
func New(c *cfg.Root, a Analyzer, repo Repository, log logrus.FieldLogger) *Server {
	if c.Server.Mode != "" {
		gin.SetMode(c.Server.Mode)
	}
	engine := gin.New()
	engine.Use(requestID(), recovery(log), requestLogger(log))

	s := &Server{engine: engine, cfg: c, analyzer: a, repo: repo, log: log.WithField("component", "server")}
	engine.GET(pathHealth, s.health)
	engine.POST(pathProcess, s.processCall)
	engine.GET(pathHistory, s.history)

	s.http = &http.Server{
		Addr:              c.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()
	s.log.WithField("addr", ln.Addr().String()).Info("listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    s.cfg.Pipeline.Name,
		"version": s.cfg.Pipeline.Version,
		"history": s.repo != nil,
	})
}

func (s *Server) processCall(c *gin.Context) {
	limit := s.cfg.Audio.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			writeError(c, uploadTooLarge(limit), http.StatusRequestEntityTooLarge)
			return
		}
		writeError(c, apperr.New(apperr.KindInvalidInput, "no file uploaded"), 0)
		return
	}
	if strings.TrimSpace(fh.Filename) == "" {
		writeError(c, apperr.New(apperr.KindInvalidInput, "no selected file"), 0)
		return
	}
	if _, err := audio.FormatFromName(fh.Filename, s.cfg.Audio.Formats); err != nil {
		writeError(c, apperr.From(err), 0)
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, apperr.New(apperr.KindInvalidInput, "unreadable upload").WithCause(err), 0)
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		writeError(c, apperr.New(apperr.KindInvalidInput, "unreadable upload").WithCause(err), 0)
		return
	}

	rec, err := s.analyzer.Run(c.Request.Context(), audio.NewAsset(fh.Filename, data))
	if err != nil {
		writeError(c, apperr.From(err), 0)
		return
	}

	resp := gin.H{"record": rec}
	if customer := strings.TrimSpace(c.PostForm("customer")); customer != "" && s.repo != nil {
		id, err := s.repo.Store(c.Request.Context(), customer, rec)
		if err != nil {
			// The analysis succeeded; storing it is reported alongside.
			s.log.WithError(err).WithField("customer", customer).Error("storing call failed")
			resp["store_error"] = apperr.From(err).ToResponse().Error
		} else {
			resp["call_id"] = id
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) history(c *gin.Context) {
	if s.repo == nil {
		writeError(c, apperr.New(apperr.KindNotFound, "call history is not enabled"), 0)
		return
	}
	name := c.Param("name")
	recs, err := s.repo.FetchByCustomer(c.Request.Context(), name)
	if err != nil {
		writeError(c, apperr.From(err), 0)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": name, "calls": recs})
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func uploadTooLarge(limit int64) *apperr.Error {
	return apperr.Newf(apperr.KindInvalidInput, "upload exceeds %d bytes", limit).WithDetail("max_bytes", limit)
}
