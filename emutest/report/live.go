package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-emutest/emutest"
)

const liveRecentLines = 8

// LiveSink renders run progress as a full-screen terminal view: a progress
// bar, running tallies and the most recently completed candidates. When the
// run ends the screen is torn down and a one-line summary is printed, so the
// terminal is left usable.
type LiveSink struct {
	// OnInterrupt is invoked when the user presses q, Esc or Ctrl-C. Wire
	// it to the run context's cancel function to stop dispatching.
	OnInterrupt func()

	mu        sync.Mutex
	screen    tcell.Screen
	started   bool
	finished  bool
	total     int
	completed int
	passed    int
	failed    int
	errored   int
	updated   int
	missing   int
	recent    []string
}

// NewLiveSink allocates a sink on a new terminal screen. The screen is only
// initialized once the run starts.
func NewLiveSink() (*LiveSink, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return &LiveSink{screen: screen}, nil
}

// NewLiveSinkWithScreen renders onto an existing screen. Used in tests with
// tcell's simulation screen.
func NewLiveSinkWithScreen(screen tcell.Screen) *LiveSink {
	return &LiveSink{screen: screen}
}

func (s *LiveSink) OnRunStart(total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	s.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	s.screen.Clear()
	s.started = true
	s.total = total

	go s.eventLoop()

	s.draw()
	return nil
}

func (s *LiveSink) OnResult(result emutest.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.finished {
		return nil
	}

	s.completed++
	switch result.Status() {
	case "passed":
		s.passed++
	case "failed", "dimension-mismatch":
		s.failed++
	case "updated":
		s.updated++
	case "no-baseline":
		s.missing++
	default:
		s.errored++
	}

	line := fmt.Sprintf("%-18s %s", result.Status(), result.Candidate.ID)
	s.recent = append(s.recent, line)
	if len(s.recent) > liveRecentLines {
		s.recent = s.recent[1:]
	}

	s.draw()
	return nil
}

func (s *LiveSink) OnRunEnd(summary *emutest.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.finished {
		return nil
	}
	s.finished = true
	s.screen.Fini()

	fmt.Printf("ran %d tests in %s: %d passed, %d failed, %d errored, %d updated\n",
		summary.Total, summary.Duration.Round(time.Millisecond),
		summary.Passed, summary.Failed, summary.Errored, summary.Updated)
	return nil
}

// Close tears the screen down if the run never reached its end, e.g. when
// the runner aborts on a configuration error.
func (s *LiveSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started && !s.finished {
		s.finished = true
		s.screen.Fini()
	}
}

// eventLoop drains terminal events so resizes redraw and key presses can
// cancel the run. PollEvent returns nil once the screen is finalized.
func (s *LiveSink) eventLoop() {
	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			s.mu.Lock()
			if !s.finished {
				s.screen.Sync()
				s.draw()
			}
			s.mu.Unlock()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				if s.OnInterrupt != nil {
					s.OnInterrupt()
				}
			}
		}
	}
}

// draw renders the whole view. Callers must hold s.mu.
func (s *LiveSink) draw() {
	s.screen.Clear()
	width, _ := s.screen.Size()

	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	drawText(s.screen, 1, 0, titleStyle, fmt.Sprintf("snapshot tests: %d/%d", s.completed, s.total))

	s.drawBar(2, width)

	tally := fmt.Sprintf("passed %d  failed %d  errored %d  updated %d  missing %d",
		s.passed, s.failed, s.errored, s.updated, s.missing)
	drawText(s.screen, 1, 4, tcell.StyleDefault, tally)

	for i, line := range s.recent {
		drawText(s.screen, 1, 6+i, tcell.StyleDefault.Foreground(tcell.ColorGray), line)
	}

	drawText(s.screen, 1, 6+liveRecentLines+1,
		tcell.StyleDefault.Foreground(tcell.ColorDarkGray), "q / ctrl-c to cancel")

	s.screen.Show()
}

func (s *LiveSink) drawBar(y, width int) {
	barWidth := width - 2
	if barWidth < 10 {
		barWidth = 10
	}
	filled := 0
	if s.total > 0 {
		filled = s.completed * barWidth / s.total
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	for x := 0; x < barWidth; x++ {
		ch := '░'
		if x < filled {
			ch = '█'
		}
		s.screen.SetContent(1+x, y, ch, nil, style)
	}
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, ch := range text {
		screen.SetContent(x+i, y, ch, nil, style)
	}
}
