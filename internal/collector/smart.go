package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/homepulse/homepulse/internal/model"
	"github.com/homepulse/homepulse/internal/store"
)

// SMART attribute IDs read from the ATA table.
const (
	attrReallocatedSectors = 5
	attrPendingSectors     = 197
)

// SSHConfig holds SSH connection settings for SMART polling.
type SSHConfig struct {
	Host    string
	User    string
	KeyPath string
}

// SMARTCollector polls smartctl over SSH for a set of disk devices and
// stores the readings.
type SMARTCollector struct {
	sshCfg   SSHConfig
	devices  []string
	store    *store.Store
	pool     *WorkerPool
	interval time.Duration
	signer   ssh.Signer // cached at startup
}

// NewSMARTCollector creates a SMART collector for the given devices.
// The SSH key is parsed once at startup rather than on every poll.
// Device polls run through pool; a nil pool means unbounded.
func NewSMARTCollector(cfg SSHConfig, devices []string, s *store.Store, pool *WorkerPool, interval time.Duration) (*SMARTCollector, error) {
	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH key %s: %w", cfg.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing SSH key %s: %w", cfg.KeyPath, err)
	}

	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &SMARTCollector{
		sshCfg:   cfg,
		devices:  devices,
		store:    s,
		pool:     pool,
		interval: interval,
		signer:   signer,
	}, nil
}

func (c *SMARTCollector) Name() string            { return fmt.Sprintf("smart:%s", c.sshCfg.Host) }
func (c *SMARTCollector) Interval() time.Duration { return c.interval }

// Collect polls every configured device. A failed device poll is logged
// and skipped so one unreachable disk does not starve the others.
func (c *SMARTCollector) Collect(ctx context.Context) error {
	client, err := c.dial(ctx)
	if err != nil {
		slog.Debug("SMART poll skipped (host unreachable)", "host", c.sshCfg.Host, "error", err)
		return nil // graceful degradation
	}
	defer client.Close()

	now := time.Now().Unix()
	var wg sync.WaitGroup
	for _, device := range c.devices {
		wg.Add(1)
		poll := func() {
			defer wg.Done()
			sample, err := c.pollDevice(client, device)
			if err != nil {
				slog.Warn("SMART poll failed", "device", device, "error", err)
				return
			}
			sample.Timestamp = now
			if err := c.store.InsertSMARTSample(*sample); err != nil {
				slog.Error("storing SMART sample", "device", device, "error", err)
			}
		}
		if c.pool != nil {
			if err := c.pool.Submit(ctx, poll); err != nil {
				wg.Done()
				break // context cancelled while waiting for a worker
			}
		} else {
			go poll()
		}
	}
	wg.Wait()
	return nil
}

func (c *SMARTCollector) dial(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.sshCfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // hosts on trusted LAN; known_hosts support planned
		Timeout:         10 * time.Second,
	}

	addr := c.sshCfg.Host + ":22"
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake with %s: %w", addr, err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (c *SMARTCollector) pollDevice(client *ssh.Client, device string) (*model.SMARTSample, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("creating SSH session: %w", err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout

	// smartctl exits nonzero when any SMART check trips; the JSON output
	// is still complete, so the exit status is ignored.
	cmd := fmt.Sprintf("smartctl --json=c -H -A %s 2>/dev/null", device)
	_ = session.Run(cmd)

	return parseSmartctlJSON(device, stdout.Bytes())
}

// smartctlOutput mirrors the subset of `smartctl --json` we read.
type smartctlOutput struct {
	SmartStatus *struct {
		Passed bool `json:"passed"`
	} `json:"smart_status"`
	Temperature *struct {
		Current int `json:"current"`
	} `json:"temperature"`
	PowerOnTime *struct {
		Hours int64 `json:"hours"`
	} `json:"power_on_time"`
	ATAAttributes *struct {
		Table []struct {
			ID  int `json:"id"`
			Raw struct {
				Value int64 `json:"value"`
			} `json:"raw"`
		} `json:"table"`
	} `json:"ata_smart_attributes"`
}

// parseSmartctlJSON extracts the health verdict and the handful of
// attributes the risk scorer uses. Missing sections parse as zero values
// so NVMe drives without an ATA attribute table still yield a sample.
func parseSmartctlJSON(device string, data []byte) (*model.SMARTSample, error) {
	var out smartctlOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing smartctl JSON for %s: %w", device, err)
	}
	if out.SmartStatus == nil {
		return nil, fmt.Errorf("no SMART status for %s", device)
	}

	sample := &model.SMARTSample{
		Disk:   device,
		Health: "PASSED",
	}
	if !out.SmartStatus.Passed {
		sample.Health = model.HealthFailed
	}
	if out.Temperature != nil {
		sample.Temperature = out.Temperature.Current
	}
	if out.PowerOnTime != nil {
		sample.PowerOnHours = out.PowerOnTime.Hours
	}
	if out.ATAAttributes != nil {
		for _, attr := range out.ATAAttributes.Table {
			switch attr.ID {
			case attrReallocatedSectors:
				sample.Reallocated = attr.Raw.Value
			case attrPendingSectors:
				sample.Pending = attr.Raw.Value
			}
		}
	}
	return sample, nil
}
