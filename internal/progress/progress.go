package progress

import (
	"fmt"
	"sync"
	"time"
)

// Tracker renders a spinner with a running entry count on stdout.
type Tracker struct {
	total     int
	current   int
	message   string
	enabled   bool
	mu        sync.Mutex
	startTime time.Time
	done      chan bool
}

// New starts a tracker. A disabled tracker accepts updates but renders nothing.
func New(total int, message string, enabled bool) *Tracker {
	p := &Tracker{
		total:     total,
		message:   message,
		enabled:   enabled,
		startTime: time.Now(),
		done:      make(chan bool),
	}
	if enabled {
		go p.render()
	}
	return p
}

func (p *Tracker) render() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	spinner := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frame := 0

	for {
		select {
		case <-p.done:
			p.mu.Lock()
			elapsed := time.Since(p.startTime)
			fmt.Printf("\r✓ %s (%d entries, %s)          \n",
				p.message, p.total, elapsed.Round(time.Millisecond))
			p.mu.Unlock()
			return

		case <-ticker.C:
			p.mu.Lock()
			if p.total > 0 {
				percent := float64(p.current) / float64(p.total) * 100
				fmt.Printf("\r%s %s [%d/%d] %.0f%%  ",
					spinner[frame%len(spinner)],
					p.message,
					p.current,
					p.total,
					percent)
			} else {
				fmt.Printf("\r%s %s [%d entries]  ",
					spinner[frame%len(spinner)],
					p.message,
					p.current)
			}
			p.mu.Unlock()
			frame++
		}
	}
}

func (p *Tracker) Increment() {
	p.mu.Lock()
	p.current++
	p.mu.Unlock()
}

func (p *Tracker) Finish() {
	if !p.enabled {
		return
	}
	close(p.done)
	time.Sleep(1 * time.Millisecond)
}
