package main

import (
	"fmt"

	cshttp "github.com/fwojciec/contentsync/http"
)

// Run executes the serve command. It blocks until the context is canceled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	s := cshttp.NewServer()
	s.Addr = c.Addr
	s.Cloner = deps.Cloner
	s.Store = deps.Store
	s.Schema = deps.Schema
	s.Progress = deps.Progress
	s.Metrics = deps.Metrics.Handler()
	s.Logger = deps.Logger

	if err := s.Open(); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.Addr, err)
	}
	deps.Logger.Info("serving", "url", s.URL())

	<-deps.Ctx.Done()
	return s.Close()
}
