package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"dojo-academy-system/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SSEService struct {
	DB  *gorm.DB
	Bus EventBus
}

func NewSSEService(db *gorm.DB, bus EventBus) *SSEService {
	return &SSEService{DB: db, Bus: bus}
}

// StreamUserEvents pushes the signed-in user's entitlement and progress
// change events over SSE. Clients re-run their queries on each event, so a
// read issued after any mutation eventually observes the committed state.
func (s *SSEService) StreamUserEvents(c *fiber.Ctx) error {
	user, err := userByClerkID(s.DB, middleware.ClerkID(c))
	if err != nil {
		return errorJSON(c, err)
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	userID := user.ID
	bus := s.Bus

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, stop, err := bus.Subscribe(ctx)
		if err != nil {
			log.Printf("SSE: subscribe failed for user %s: %v", userID, err)
			return
		}
		defer stop()

		keepalive := time.NewTicker(25 * time.Second)
		defer keepalive.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.UserID != userID {
					continue
				}

				payload, _ := json.Marshal(ev)
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
				if err := w.Flush(); err != nil {
					// client went away
					return
				}

			case <-keepalive.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
