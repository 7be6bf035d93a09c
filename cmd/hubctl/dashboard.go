package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chaz8081/hubctl/internal/hub"
	"github.com/chaz8081/hubctl/internal/protocol"
)

var dashboardSubscribe []string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live terminal view of a hub",
	Long: `Connect to a hub and show its state, attached devices, the latest
reading of each subscribed capability and an event log.

  hubctl dashboard --subscribe A:rotate --subscribe B:tilt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("dashboard needs a terminal")
		}
		subs, err := parseSubscriptions(dashboardSubscribe)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		p := tea.NewProgram(newDashboardModel(s.hub), tea.WithContext(ctx))
		go pump(ctx, s.hub, subs, p.Send)
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	addHubFlags(dashboardCmd)
	dashboardCmd.Flags().StringArrayVar(&dashboardSubscribe, "subscribe", nil, "port:capability[,capability] to show (repeatable)")
	rootCmd.AddCommand(dashboardCmd)
}

// pump forwards hub events and subscribed readings to send, subscribing
// to ports as they attach.
func pump(ctx context.Context, h *hub.Hub, subs map[string][]string, send func(tea.Msg)) {
	subscribed := make(map[string]bool)
	subscribe := func(port string) {
		caps, ok := subs[port]
		if !ok || subscribed[port] {
			return
		}
		var s *hub.Subscription
		var err error
		if len(caps) == 1 {
			s, err = h.Subscribe(port, caps[0])
		} else {
			s, err = h.SubscribeCombined(port, caps...)
		}
		if err != nil {
			send(logMsg{text: fmt.Sprintf("subscribe %s: %v", port, err), isError: true})
			return
		}
		subscribed[port] = true
		go func() {
			for r := range s.C {
				send(readingMsg(r))
			}
		}()
	}
	for _, a := range h.Attachments() {
		subscribe(a.Port)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.Events():
			send(eventMsg(ev))
			switch ev.Kind {
			case hub.EventAttach:
				subscribe(ev.Attachment.Port)
			case hub.EventDetach:
				delete(subscribed, ev.Attachment.Port)
			}
		}
	}
}

// hubView is the hub state the dashboard renders.
type hubView interface {
	Name() string
	Type() protocol.HubType
	FirmwareVersion() string
	BatteryLevel() int
	RSSI() int
	Attachments() []hub.Attachment
}

// Messages
type dashboardTickMsg time.Time
type eventMsg hub.Event
type readingMsg hub.Reading
type logMsg struct {
	text    string
	isError bool
}

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type readingLine struct {
	port       string
	capability string
	value      string
	updated    time.Time
	count      int
}

// dashboardModel is the Bubble Tea model for the dashboard
type dashboardModel struct {
	hub           hubView
	ports         []hub.Attachment
	battery       int
	rssi          int
	readings      map[string]*readingLine
	log           []logEntry
	maxLogEntries int
	disconnected  bool
	width         int
	height        int
	quitting      bool
}

func newDashboardModel(h hubView) dashboardModel {
	return dashboardModel{
		hub:           h,
		ports:         h.Attachments(),
		battery:       h.BatteryLevel(),
		rssi:          h.RSSI(),
		readings:      make(map[string]*readingLine),
		maxLogEntries: 10,
		width:         80,
		height:        24,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(
		dashboardTickCmd(),
		tea.EnterAltScreen,
	)
}

func dashboardTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return dashboardTickMsg(t)
	})
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case dashboardTickMsg:
		m.ports = m.hub.Attachments()
		m.battery = m.hub.BatteryLevel()
		m.rssi = m.hub.RSSI()
		return m, dashboardTickCmd()

	case eventMsg:
		ev := hub.Event(msg)
		switch ev.Kind {
		case hub.EventAttach, hub.EventDetach:
			m.ports = m.hub.Attachments()
			if ev.Kind == hub.EventDetach {
				m.dropReadings(ev.Attachment.Port)
			}
		case hub.EventBattery:
			m.battery = ev.Value
		case hub.EventRSSI:
			m.rssi = ev.Value
		case hub.EventDisconnect:
			m.disconnected = true
		}
		m.addLogEntry(formatEvent(ev), ev.Kind == hub.EventDisconnect)

	case readingMsg:
		r := hub.Reading(msg)
		key := r.Port + "/" + r.Capability
		line, ok := m.readings[key]
		if !ok {
			line = &readingLine{port: r.Port, capability: r.Capability}
			m.readings[key] = line
		}
		line.value = formatReading(r.Value)
		line.updated = time.Now()
		line.count++

	case logMsg:
		m.addLogEntry(msg.text, msg.isError)
	}

	return m, nil
}

func (m *dashboardModel) addLogEntry(message string, isError bool) {
	m.log = append(m.log, logEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

func (m *dashboardModel) dropReadings(port string) {
	for key, line := range m.readings {
		if line.port == port {
			delete(m.readings, key)
		}
	}
}

func (m dashboardModel) View() string {
	if m.quitting {
		return "Disconnecting...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("HUBCTL - " + m.hub.Name()))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | firmware %s | Press 'q' to quit",
		m.hub.Type(), m.hub.FirmwareVersion())))
	s.WriteString("\n\n")

	if m.disconnected {
		s.WriteString(errorStyle.Render("Disconnected"))
		s.WriteString("\n\n")
	}

	status := fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Battery:"), valueStyle.Render(fmt.Sprintf("%d%%", m.battery)),
		labelStyle.Render("RSSI:"), valueStyle.Render(fmt.Sprintf("%d dBm", m.rssi)))
	s.WriteString(boxStyle.Render(status))
	s.WriteString("\n")

	var ports strings.Builder
	ports.WriteString(labelStyle.Render("Ports"))
	if len(m.ports) == 0 {
		ports.WriteString("\n" + headerStyle.Render("no devices attached"))
	}
	for _, a := range m.ports {
		ports.WriteString("\n" + formatAttachment(a))
	}
	s.WriteString(boxStyle.Render(ports.String()))
	s.WriteString("\n")

	if len(m.readings) > 0 {
		keys := make([]string, 0, len(m.readings))
		for k := range m.readings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var rs strings.Builder
		rs.WriteString(labelStyle.Render("Readings"))
		for _, k := range keys {
			line := m.readings[k]
			rs.WriteString(fmt.Sprintf("\n%-8s %-16s %s %s", line.port, line.capability,
				valueStyle.Render(line.value), headerStyle.Render(fmt.Sprintf("(%d)", line.count))))
		}
		s.WriteString(boxStyle.Render(rs.String()))
		s.WriteString("\n")
	}

	if len(m.log) > 0 {
		var ls strings.Builder
		ls.WriteString(labelStyle.Render("Events"))
		for _, e := range m.log {
			text := fmt.Sprintf("%s %s", e.timestamp.Format("15:04:05"), e.message)
			if e.isError {
				text = errorStyle.Render(text)
			}
			ls.WriteString("\n" + text)
		}
		s.WriteString(boxStyle.Render(ls.String()))
		s.WriteString("\n")
	}

	return s.String()
}
