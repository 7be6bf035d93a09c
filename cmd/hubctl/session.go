package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaz8081/hubctl/internal/ble"
	"github.com/chaz8081/hubctl/internal/capture"
	"github.com/chaz8081/hubctl/internal/config"
	"github.com/chaz8081/hubctl/internal/hub"
	"github.com/chaz8081/hubctl/internal/protocol"
)

var (
	hubName    string
	hubAddress string
)

// addHubFlags adds the hub selection flags to a command that connects.
func addHubFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&hubName, "name", "", "connect to the hub with this advertised name")
	cmd.Flags().StringVar(&hubAddress, "address", "", "connect to the hub with this address")
}

// found is an identified hub advertisement.
type found struct {
	adv     ble.Advertisement
	hubType protocol.HubType
}

// scanHubs scans for cfg.Scan.Timeout and returns the identified hubs
// matching the name and address filters.
func scanHubs(ctx context.Context, adapter ble.Adapter, sc config.ScanConfig) ([]found, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, sc.Timeout)
	defer cancel()
	ads, err := adapter.Scan(ctx, protocol.LPF2HubServiceUUID, protocol.WeDo2HubServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return filterHubs(ads, sc.Name, sc.Address), nil
}

func filterHubs(ads []ble.Advertisement, name, address string) []found {
	var out []found
	for _, adv := range ads {
		t, ok := hub.Identify(adv)
		if !ok {
			slog.Debug("[HUBCTL] ignoring advertisement", "name", adv.Name, "address", adv.Address)
			continue
		}
		if name != "" && adv.Name != name {
			continue
		}
		if address != "" && !strings.EqualFold(adv.Address, address) {
			continue
		}
		out = append(out, found{adv: adv, hubType: t})
	}
	return out
}

// session is a connected hub and whatever must be released with it.
type session struct {
	hub      *hub.Hub
	recorder *capture.Recorder
	file     *os.File
}

// openSession scans for the first matching hub and connects to it,
// recording a capture when cfg.Capture.Path is set.
func openSession(ctx context.Context) (*session, error) {
	sc := cfg.Scan
	if hubName != "" {
		sc.Name = hubName
	}
	if hubAddress != "" {
		sc.Address = hubAddress
	}

	adapter := ble.NewTinyGoAdapter()
	hubs, err := scanHubs(ctx, adapter, sc)
	if err != nil {
		return nil, err
	}
	if len(hubs) == 0 {
		return nil, fmt.Errorf("no hub found within %s", sc.Timeout)
	}
	target := hubs[0]
	slog.Info("[HUBCTL] found hub", "name", target.adv.Name, "address", target.adv.Address, "type", target.hubType)

	var t hub.Transport = ble.NewClient(adapter, target.adv, clientOptions(cfg.Hub))
	s := &session{}
	if cfg.Capture.Path != "" {
		f, err := os.Create(cfg.Capture.Path)
		if err != nil {
			return nil, fmt.Errorf("create capture: %w", err)
		}
		rec, err := capture.NewRecorder(f, t, target.hubType)
		if err != nil {
			f.Close()
			return nil, err
		}
		s.file, s.recorder = f, rec
		t = rec
		slog.Info("[CAPTURE] recording", "path", cfg.Capture.Path)
	}

	s.hub = hub.New(t, target.hubType, hubOptions(cfg.Hub))
	ctx, cancel := context.WithTimeout(ctx, cfg.Hub.ConnectTimeout)
	defer cancel()
	if err := s.hub.Connect(ctx); err != nil {
		s.closeCapture()
		return nil, err
	}
	return s, nil
}

func clientOptions(hc config.HubConfig) ble.ClientOptions {
	return ble.ClientOptions{
		ConnectTimeout: hc.ConnectTimeout,
		WriteDelay:     hc.WriteDelay,
	}
}

func hubOptions(hc config.HubConfig) hub.Options {
	return hub.Options{
		AutoSubscribe:      hc.AutoSubscribe,
		SubscriptionBuffer: hc.SubscriptionBuffer,
	}
}

// Close disconnects the hub and finishes the capture.
func (s *session) Close() {
	if s.hub.State() != hub.StateDisconnected {
		if err := s.hub.Disconnect(); err != nil {
			slog.Warn("[HUBCTL] disconnect", "error", err)
		}
	}
	s.closeCapture()
}

func (s *session) closeCapture() {
	if s.file == nil {
		return
	}
	if err := s.recorder.Err(); err != nil {
		slog.Warn("[CAPTURE] capture incomplete", "error", err)
	}
	if err := s.file.Close(); err != nil {
		slog.Warn("[CAPTURE] close capture", "error", err)
	}
	s.file = nil
}
