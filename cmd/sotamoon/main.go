package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sotamoon-network/core"
	"sotamoon-network/network"
	"sotamoon-network/pkg/config"
	"sotamoon-network/pkg/logging"
	"sotamoon-network/provider"
)

func main() {
	rootCmd := &cobra.Command{Use: "sotamoon"}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(walletCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start a SOTAMoon node: discovery, gossip protocol, and mining",
		Run: func(cmd *cobra.Command, args []string) {
			cfgPath, _ := cmd.Flags().GetString("config")
			keystore, _ := cmd.Flags().GetString("wallet")
			generateBlocks, _ := cmd.Flags().GetInt("generate_blocks")

			var cfg *config.Config
			var err error
			if cfgPath != "" {
				cfg, err = config.Load(cfgPath)
			} else {
				cfg, err = config.LoadFromEnv()
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "load config: %v\n", err)
				os.Exit(1)
			}
			logging.SetLevel(cfg.Logging.Level)
			log := logging.With("main")

			wallet, err := loadOrCreateWallet(keystore)
			if err != nil {
				log.WithError(err).Fatal("load wallet")
			}
			defer wallet.Wipe()

			fileProvider, err := provider.NewFileProvider(cfg.Storage.CacheDir)
			if err != nil {
				log.WithError(err).Fatal("open file provider")
			}
			chain := core.NewGenesisChain(wallet.Wallet, fileProvider)
			miner := core.NewMiner(wallet, chain, fileProvider)

			sources := []network.NodeSource{
				network.StaticSource{Addresses: cfg.Network.StaticPeers},
				network.NewDNSSource(cfg.Network.DNSSeeds),
				network.NewMDNSSource(),
			}
			tracker := network.NewTracker(cfg.Network.Port, sources, chain, miner)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
				<-sig
				log.Info("shutting down")
				cancel()
			}()

			if generateBlocks > 0 {
				go runMiningLoop(ctx, chain, miner, generateBlocks, log)
			}

			log.WithField("port", cfg.Network.Port).Info("listening")
			if err := tracker.Serve(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Fatal("tracker serve")
			}
		},
	}
	cmd.Flags().String("config", "", "environment name merged over the default config (overrides SOTA_ENV)")
	cmd.Flags().String("wallet", "", "path to an existing wallet keystore (mnemonic file); a new one is created if absent")
	cmd.Flags().Int("generate_blocks", 0, "mine up to N blocks then stop (0 disables mining)")
	return cmd
}

// runMiningLoop drives up to count successful mines sequentially. Each
// round targets the chain tip's current benchmark proof; a WorkerFatal
// callback logs and exits the process with a non-zero status rather than
// retrying blindly.
func runMiningLoop(ctx context.Context, chain *core.Chain, miner *core.Miner, count int, entry *log.Entry) {
	var wg sync.WaitGroup
	for mined := 0; mined < count; {
		last := chain.LastBlock()
		benchmarkBlock, ok := chain.LastBenchmarkBlock(last.Proof.BenchmarkID)
		if !ok {
			benchmarkBlock = last
		}

		wg.Add(1)
		done := make(chan struct{})
		miner.Mine(ctx, last, benchmarkBlock, func(block core.Block) {
			entry.WithField("hash_prefix", block.Proof.Model.ModelHash[:8]).Info("mined block")
			close(done)
			wg.Done()
		}, func(err error) {
			entry.WithError(err).Fatal("mining worker failed")
		})

		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-done:
			mined++
		}
	}
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "wallet"}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "generate a new wallet and print its recovery mnemonic",
		Run: func(cmd *cobra.Command, args []string) {
			entropy, _ := cmd.Flags().GetInt("entropy")
			out, _ := cmd.Flags().GetString("out")

			w, mnemonic, err := core.NewRandomWallet(entropy)
			if err != nil {
				fmt.Fprintf(os.Stderr, "new wallet: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("address: %s\n", w.Identity())
			fmt.Printf("mnemonic: %s\n", mnemonic)
			if out != "" {
				if err := os.WriteFile(out, []byte(mnemonic+"\n"), 0o600); err != nil {
					fmt.Fprintf(os.Stderr, "write keystore: %v\n", err)
					os.Exit(1)
				}
			}
		},
	}
	newCmd.Flags().Int("entropy", 128, "mnemonic entropy in bits (128, 160, 192, 224, or 256)")
	newCmd.Flags().String("out", "", "write the mnemonic to this path")

	addressCmd := &cobra.Command{
		Use:   "address [keystore]",
		Short: "print the address recovered from a keystore's mnemonic",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			w, err := loadOrCreateWallet(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "load wallet: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(w.Identity())
		},
	}

	cmd.AddCommand(newCmd, addressCmd)
	return cmd
}

// loadOrCreateWallet recovers an opened wallet from the mnemonic stored at
// keystore, or mints a fresh one (and persists it) when keystore is empty
// or the file does not yet exist.
func loadOrCreateWallet(keystore string) (*core.OpenedWallet, error) {
	if keystore == "" {
		w, _, err := core.NewRandomWallet(128)
		return w, err
	}
	content, err := os.ReadFile(keystore)
	if os.IsNotExist(err) {
		w, mnemonic, genErr := core.NewRandomWallet(128)
		if genErr != nil {
			return nil, genErr
		}
		if writeErr := os.WriteFile(keystore, []byte(mnemonic+"\n"), 0o600); writeErr != nil {
			return nil, writeErr
		}
		return w, nil
	}
	if err != nil {
		return nil, err
	}
	return core.WalletFromMnemonic(trimNewline(string(content)), "")
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
