package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/0xlemi/vocalcoach/internal/denoise"
	"github.com/0xlemi/vocalcoach/internal/engine"
	"github.com/0xlemi/vocalcoach/internal/pitch"
	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"
)

// chartWidth is how many history samples the pitch trace shows
const chartWidth = 60

var (
	shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

	traceLevels = []rune("▁▂▃▄▅▆▇█")
)

// View renders the UI
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("VocalCoach - Pitch Practice"))
	b.WriteString("\n")

	if m.snap.Status == engine.StatusError {
		b.WriteString(errorStyle.Render("Microphone unavailable: " + m.snap.Err))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("Allow microphone access, then press r to retry."))
		b.WriteString("\n\n")
		b.WriteString(m.helpLine())
		return b.String()
	}

	b.WriteString(m.sequenceLine())
	b.WriteString("\n\n")

	var cents string
	if n, ok := pitch.Describe(m.snap.VoiceFrequency); ok && m.snap.HasVoice {
		cents = fmt.Sprintf("%s  %.1f Hz  %+.0f cents", n, m.snap.VoiceFrequency, n.Cents)
	}
	targetBox := lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render("target"), renderNote(m.target.Note))
	sungBox := lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render("you"), renderNote(sungName(m.snap)))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, targetBox, "   ", sungBox, "   ", m.verdict()))
	b.WriteString("\n")
	if cents != "" {
		b.WriteString(infoStyle.Render(cents))
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.levelLine())
	b.WriteString("\n\n")
	b.WriteString(trace(m.snap.Pitches, m.snap.Targets))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(warnStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.helpLine())
	return b.String()
}

func sungName(s engine.Snapshot) string {
	if !s.HasVoice {
		return ""
	}
	n, ok := pitch.Describe(s.VoiceFrequency)
	if !ok {
		return ""
	}
	return n.String()
}

func (m Model) verdict() string {
	if !m.snap.HasVoice {
		return verdictStyle.Render("  ")
	}
	return verdictStyle.Render(string(pitch.Compare(m.target.Hz, m.snap.VoiceFrequency)))
}

// sequenceLine lists the exercise, highlighting the sounding note
func (m Model) sequenceLine() string {
	parts := make([]string, len(m.sequence))
	for i, name := range m.sequence {
		if i == m.target.Index {
			parts[i] = activeStyle.Render(name)
		} else {
			parts[i] = infoStyle.Render(name)
		}
	}
	line := strings.Join(parts, " ")
	if m.buildErr != nil {
		line = errorStyle.Render(m.buildErr.Error())
	}

	var transport string
	switch {
	case m.rendering:
		transport = "rendering..."
	case m.noAudio:
		transport = "no reference audio"
	case m.transport.Paused():
		transport = fmt.Sprintf("paused %s / %s", clock(m.transport.Position()), clock(m.transport.Duration()))
	case m.transport.Playing():
		transport = fmt.Sprintf("playing %s / %s", clock(m.transport.Position()), clock(m.transport.Duration()))
	case m.transport.Ended():
		transport = "finished"
	default:
		transport = "press space to play"
	}
	return line + "  " + dimStyle.Render(transport)
}

func (m Model) statusLine() string {
	var parts []string

	if m.snap.VoiceDetected {
		parts = append(parts, infoStyle.Render("voice detected"))
	} else {
		parts = append(parts, dimStyle.Render("listening..."))
	}
	if m.snap.PitchOutOfRange {
		parts = append(parts, warnStyle.Render("out of your "+m.exercise.RangeKey+" range"))
	}

	dn := m.snap.Denoiser
	den := fmt.Sprintf("denoiser %s (%s)", dn.Effective, dn.Status)
	if dn.Requested != dn.Effective && dn.Status == denoise.StatusReady {
		den = fmt.Sprintf("denoiser %s, wanted %s", dn.Effective, dn.Requested)
	}
	parts = append(parts, dimStyle.Render(den))
	if dn.Err != "" {
		parts = append(parts, dimStyle.Render("("+dn.Err+")"))
	}

	if m.snap.Status == engine.StatusStarting {
		parts = append(parts, dimStyle.Render("starting microphone..."))
	} else if !m.started.IsZero() && !m.now.IsZero() {
		parts = append(parts, dimStyle.Render("session "+durafmt.Parse(m.now.Sub(m.started).Truncate(time.Second)).LimitFirstN(2).Format(shortUnits)))
	}
	return strings.Join(parts, "  ")
}

func (m Model) levelLine() string {
	const width = 30
	threshold := m.detector.Threshold()
	if m.editing {
		return warnStyle.Render(fmt.Sprintf("noise threshold: %s_  (enter to set, esc to cancel)", m.editValue))
	}
	// -100..0 dB across the bar
	filled := int(math.Round((m.snap.LevelDB + 100) / 100 * width))
	filled = max(0, min(width, filled))
	cut := max(0, min(width-1, threshold*width/100))

	bar := []rune(strings.Repeat("█", filled) + strings.Repeat("░", width-filled))
	bar[cut] = '|'
	return infoStyle.Render(fmt.Sprintf("level %s %5.1f dB  threshold %d", string(bar), m.snap.LevelDB, threshold))
}

// trace plots the sung pitch against the target in cents, one column per
// tick, up to a semitone either way.
func trace(pitches []engine.PitchSample, targets []engine.TargetSample) string {
	n := min(len(pitches), len(targets))
	if n == 0 {
		return dimStyle.Render(strings.Repeat("·", chartWidth))
	}
	from := max(0, n-chartWidth)
	var b strings.Builder
	for i := from; i < n; i++ {
		p, t := pitches[i], targets[i]
		if !p.HasPitch || !t.Has {
			b.WriteRune(' ')
			continue
		}
		cents := 1200 * math.Log2(p.Pitch/t.Hz)
		cents = max(-100, min(100, cents))
		idx := int(math.Round((cents + 100) / 200 * float64(len(traceLevels)-1)))
		b.WriteRune(traceLevels[idx])
	}
	return infoStyle.Render(b.String())
}

func clock(d time.Duration) string {
	d = d.Truncate(100 * time.Millisecond)
	return fmt.Sprintf("%d:%04.1f", int(d.Minutes()), math.Mod(d.Seconds(), 60))
}

func (m Model) helpLine() string {
	return dimStyle.Render("↑/↓ transpose  space play/pause  t threshold  d denoiser  r restart  q quit")
}
