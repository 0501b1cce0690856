package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const logo = `
                           _           _
   __ _  ___  ___    ___ | |__   __ _| |_
  / _` + "`" + ` |/ _ \/ _ \  / __|| '_ \ / _` + "`" + ` | __|
 | (_| |  __/ (_) || (__ | | | | (_| | |_
  \__, |\___|\___/  \___||_| |_|\__,_|\__|
  |___/
`

func showLogo() {
	colors := []string{"55", "93", "129", "165", "201", "207"}
	for i, line := range strings.Split(strings.Trim(logo, "\n"), "\n") {
		c := colors[i%len(colors)]
		fmt.Printf("\x1b[38;5;%sm%s\x1b[0m\n", c, line)
	}
	fmt.Println("  ephemeral geohash channels over nostr")
	fmt.Println()
}

func main() {
	configFlag := flag.String("config", "", "path to config file")
	nsecFlag := flag.String("nsec", "", "log in with a persistent secret key (nsec or hex)")
	channelFlag := flag.String("channel", "", "auto-join a geohash channel on startup")
	debugFlag := flag.Bool("debug", false, "enable debug logging to debug.log")
	noLogoFlag := flag.Bool("no-logo", false, "skip the startup logo")
	flag.Parse()

	if *debugFlag {
		f, err := tea.LogToFile("debug.log", "geochat")
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.Println("debug logging enabled")
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("config loaded: %d relays", len(cfg.Relays))

	identity, err := buildIdentity(*nsecFlag, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "key error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("identity ready: npub=%s nick=%s ephemeral=%v", identity.NPub, identity.Nickname, identity.Ephemeral)

	if !*noLogoFlag {
		showLogo()
	}

	pool := newRelayPool(cfg.Relays)
	store := newChannelStore(&identity, pool, cfg.MaxMessages, cfg.DedupCapacity)
	subs := newSubscriptionController(pool, cfg.Lookback(), cfg.SubscriptionLimit)
	pool.Start()

	m := newModel(cfg, &identity, pool, store, subs, *channelFlag)

	log.Println("starting TUI")
	p := tea.NewProgram(&m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	pool.Close()
}

// buildIdentity picks the identity source: the -nsec flag wins, then
// the configured key file, otherwise a fresh ephemeral identity.
func buildIdentity(nsec string, cfg Config) (Identity, error) {
	if nsec != "" {
		return identityFromSecret(nsec)
	}
	if cfg.PrivateKeyFile != "" {
		secret, err := loadSecretFromFile(cfg.PrivateKeyFile)
		if err != nil {
			return Identity{}, fmt.Errorf("read %s: %w", cfg.PrivateKeyFile, err)
		}
		return identityFromSecret(secret)
	}
	return generateIdentity()
}
