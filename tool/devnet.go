// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/0xsoniclabs/abab/archive"
	"github.com/0xsoniclabs/abab/chain"
	"github.com/0xsoniclabs/abab/chainstore"
	"github.com/0xsoniclabs/abab/common/diagnostics"
	"github.com/0xsoniclabs/abab/consensus"
	"github.com/0xsoniclabs/abab/consensus/abab"
	"github.com/0xsoniclabs/abab/gossip"
	"github.com/0xsoniclabs/abab/spec"
	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file for the devnet",
	}
	validatorsFlag = cli.IntFlag{
		Name:  "validators",
		Usage: "number of validators to run",
	}
	blocksFlag = cli.IntFlag{
		Name:  "blocks",
		Usage: "number of blocks to seal",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the header store and message archive, in-memory if empty",
	}
)

var DevnetCmd = cli.Command{
	Action: diagnostics.AddPerformanceDiagnosticsAction(
		doRunDevnet, &diagnosticsFlag, &cpuProfileFlag, &traceFlag),
	Name:  "devnet",
	Usage: "run an in-process devnet sealing blocks through the full consensus path",
	Flags: []cli.Flag{
		&configFlag,
		&validatorsFlag,
		&blocksFlag,
		&dataDirFlag,
		&diagnosticsFlag,
		&cpuProfileFlag,
		&traceFlag,
	},
}

// devnetConfig configures a devnet run. Flags override file values.
type devnetConfig struct {
	Validators int    `toml:"validators"`
	Blocks     int    `toml:"blocks"`
	TimeoutMs  uint64 `toml:"timeout_ms"`  // < view change timeout
	DataDir    string `toml:"data_dir"`    // < empty runs fully in memory
	WorkTarget int    `toml:"work_target"` // < gossip proof of work bits
	GasLimit   uint64 `toml:"gas_limit"`
}

func defaultDevnetConfig() devnetConfig {
	return devnetConfig{
		Validators: 3,
		Blocks:     5,
		TimeoutMs:  10_000,
		WorkTarget: 8,
		GasLimit:   4_700_000,
	}
}

func loadDevnetConfig(path string) (devnetConfig, error) {
	config := defaultDevnetConfig()
	if path == "" {
		return config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return config, fmt.Errorf("failed to load devnet configuration: %w", err)
	}
	return config, nil
}

func (c devnetConfig) validate() error {
	if c.Validators < 2 {
		return fmt.Errorf("devnet needs at least two validators, got %d", c.Validators)
	}
	if c.Blocks < 1 {
		return fmt.Errorf("devnet needs at least one block to seal, got %d", c.Blocks)
	}
	return nil
}

func doRunDevnet(context *cli.Context) error {
	config, err := loadDevnetConfig(context.String(configFlag.Name))
	if err != nil {
		return err
	}
	if context.IsSet(validatorsFlag.Name) {
		config.Validators = context.Int(validatorsFlag.Name)
	}
	if context.IsSet(blocksFlag.Name) {
		config.Blocks = context.Int(blocksFlag.Name)
	}
	if context.IsSet(dataDirFlag.Name) {
		config.DataDir = context.String(dataDirFlag.Name)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	log.Info().
		Int("validators", config.Validators).
		Int("blocks", config.Blocks).
		Str("memory", fmt.Sprintf("%d MiB", diagnostics.TotalSystemMemory()>>20)).
		Msg("starting devnet")
	return runDevnet(config, log)
}

// devnetNode is one in-process validator: an engine, its gossip pool, and a
// header store.
type devnetNode struct {
	index   int
	key     *ecdsa.PrivateKey
	address common.Address
	engine  *abab.Engine
	pool    *gossip.Pool
	store   chainstore.Store

	submitted *sealSubmission // < last seal submitted by the engine
}

type sealSubmission struct {
	hash common.Hash
	seal [][]byte
}

// devnet connects a set of nodes through a queued loopback network. Messages
// are wrapped into sealed gossip envelopes and flooded to all other nodes;
// the queue keeps delivery iterative rather than recursive.
type devnet struct {
	config  devnetConfig
	log     zerolog.Logger
	nodes   []*devnetNode
	archive *archive.Archive // may be nil

	mu    sync.Mutex
	queue []broadcast
}

type broadcast struct {
	origin int
	data   []byte
}

// loopbackClient connects one node's engine to the devnet.
type loopbackClient struct {
	net  *devnet
	node *devnetNode
}

func (c *loopbackClient) BroadcastConsensusMessage(data []byte) {
	c.net.enqueue(c.node.index, data)
}

// UpdateSealing is a no-op: the devnet run loop drives block assembly.
func (c *loopbackClient) UpdateSealing() {}

func (c *loopbackClient) SubmitSeal(hash common.Hash, seal [][]byte) {
	c.node.submitted = &sealSubmission{hash: hash, seal: seal}
}

func runDevnet(config devnetConfig, log zerolog.Logger) error {
	if err := config.validate(); err != nil {
		return err
	}

	net := &devnet{config: config, log: log}
	defer net.shutdown()

	if config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create devnet data directory: %w", err)
		}
		messageArchive, err := archive.Open(filepath.Join(config.DataDir, "messages.db"))
		if err != nil {
			return err
		}
		net.archive = messageArchive
	}

	// Generate the validator identities and derive the chain spec from them.
	keys := make([]*ecdsa.PrivateKey, config.Validators)
	validators := make([]common.Address, config.Validators)
	for i := range keys {
		key, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate a validator key: %w", err)
		}
		keys[i] = key
		validators[i] = crypto.PubkeyToAddress(key.PublicKey)
	}
	chainSpec := devnetSpec(config, validators)
	genesis := chainSpec.GenesisHeader()

	for i := range keys {
		node, err := net.startNode(i, keys[i], chainSpec)
		if err != nil {
			return err
		}
		net.nodes = append(net.nodes, node)
	}

	// Seal blocks through the full propose, vote, and commit path.
	parent := genesis
	for _, node := range net.nodes {
		if err := node.store.Put(parent); err != nil {
			return err
		}
	}
	start := time.Now()
	for number := uint64(1); number <= uint64(config.Blocks); number++ {
		committed, err := net.sealBlock(number, parent)
		if err != nil {
			return fmt.Errorf("failed to seal block %d: %w", number, err)
		}
		log.Info().
			Uint64("number", number).
			Stringer("hash", committed.Hash()).
			Msg("sealed block")
		parent = committed
	}

	return net.report(parent, time.Since(start))
}

// devnetSpec builds the chain spec of an ad-hoc devnet chain.
func devnetSpec(config devnetConfig, validators []common.Address) *spec.Spec {
	timeout := spec.Quantity(config.TimeoutMs)
	return &spec.Spec{
		Name: "abab-devnet",
		Engine: spec.Engine{Abab: &spec.AbabEngine{Params: spec.AbabParams{
			GasLimitBoundDivisor: spec.Quantity(abab.DefaultGasLimitBoundDivisor),
			Validators:           spec.ValidatorSet{List: validators},
			Timeout:              &timeout,
		}}},
		Genesis: spec.Genesis{
			Difficulty: spec.Quantity(131072),
			GasLimit:   spec.Quantity(config.GasLimit),
			Timestamp:  spec.Quantity(time.Now().Unix()),
			ExtraData:  []byte("abab devnet"),
		},
	}
}

func (d *devnet) startNode(index int, key *ecdsa.PrivateKey, chainSpec *spec.Spec) (*devnetNode, error) {
	log := d.log.With().Int("node", index).Logger()
	engine, err := abab.New(chainSpec.EngineParams(), log)
	if err != nil {
		return nil, err
	}

	var store chainstore.Store = chainstore.NewMemoryStore()
	if d.config.DataDir != "" {
		ldb, err := chainstore.OpenLevelDB(filepath.Join(d.config.DataDir, fmt.Sprintf("chain-%d", index)))
		if err != nil {
			engine.Stop()
			return nil, err
		}
		store = chainstore.NewAsyncStore(ldb)
	}

	node := &devnetNode{
		index:   index,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		engine:  engine,
		pool:    gossip.NewPool(d.config.WorkTarget, log),
		store:   store,
	}
	engine.SetSigner(key)
	engine.RegisterClient(&loopbackClient{net: d, node: node})
	return node, nil
}

// sealBlock drives one block through proposal, voting, and commit.
func (d *devnet) sealBlock(number uint64, parent *chain.Header) (*chain.Header, error) {
	// Collect view changes until the primary is entitled to propose.
	for _, node := range d.nodes {
		node.engine.Step()
	}
	d.deliver()

	primary := d.nodes[number%uint64(len(d.nodes))]
	primary.submitted = nil

	header := &chain.Header{
		ParentHash: parent.Hash(),
		Author:     primary.address,
		Number:     number,
		Timestamp:  parent.Timestamp + 1,
		Extra:      append([]byte(nil), parent.Extra...),
	}
	primary.engine.PopulateFromParent(header, parent, d.config.GasLimit)

	seal := primary.engine.GenerateSeal(header)
	if seal.Kind != consensus.SealProposal {
		return nil, errors.New("primary did not produce a proposal")
	}
	proposal := header.WithSeal(seal.Fields)

	// The remaining validators verify the proposal and vote on it.
	vote := abab.NewVote(number, 0, header.BareHash())
	for _, node := range d.nodes {
		if node == primary {
			continue
		}
		if err := errors.Join(
			node.engine.VerifyBlockBasic(proposal),
			node.engine.VerifyBlockUnordered(proposal),
			node.engine.VerifyBlockFamily(proposal, parent),
		); err != nil {
			return nil, err
		}
		if !node.engine.IsProposal(proposal) {
			return nil, errors.New("proposal was not recognized")
		}
		hash := vote.Hash()
		signature, err := crypto.Sign(hash[:], node.key)
		if err != nil {
			return nil, err
		}
		message := abab.Message{Signature: signature, Vote: vote}
		d.enqueue(node.index, message.Encode())
	}
	d.deliver()

	if primary.submitted == nil {
		return nil, errors.New("vote threshold reached no commit")
	}
	if primary.submitted.hash != header.BareHash() {
		return nil, errors.New("commit seal is for a different block")
	}
	committed := header.WithSeal(primary.submitted.seal)

	for _, node := range d.nodes {
		if err := node.engine.VerifyBlockUnordered(committed); err != nil {
			return nil, fmt.Errorf("committed block failed verification: %w", err)
		}
		if node != primary {
			// Observing the commit seal advances the node to the next height.
			if node.engine.IsProposal(committed) {
				return nil, errors.New("commit was mistaken for a proposal")
			}
		}
		if err := node.store.Put(committed); err != nil {
			return nil, err
		}
	}
	return committed, nil
}

func (d *devnet) enqueue(origin int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, broadcast{origin: origin, data: data})
}

// deliver floods queued messages through the gossip pools until the network
// is quiet. Relaying may enqueue further messages, so the queue is drained
// iteratively.
func (d *devnet) deliver() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.record(next.data)
		envelope := &gossip.Envelope{
			Version: 1,
			Expiry:  uint64(time.Now().Add(time.Minute).Unix()),
			TTL:     60,
			Topic:   0xabab,
			Payload: next.data,
		}
		if err := envelope.Seal(d.config.WorkTarget); err != nil {
			d.log.Warn().Err(err).Msg("could not seal a gossip envelope")
			continue
		}
		for _, node := range d.nodes {
			if node.index == next.origin {
				continue
			}
			if err := node.pool.Add(envelope, time.Now()); err != nil {
				// Duplicates are expected when relays overlap.
				if !errors.Is(err, gossip.ErrDuplicateEnvelope) {
					d.log.Warn().Err(err).Int("node", node.index).Msg("gossip rejected an envelope")
				}
				continue
			}
			if err := node.engine.HandleMessage(next.data); err != nil {
				d.log.Warn().Err(err).Int("node", node.index).Msg("engine rejected a message")
			}
		}
	}
}

// record archives a consensus message, when archiving is enabled.
func (d *devnet) record(data []byte) {
	if d.archive == nil {
		return
	}
	message, err := abab.DecodeMessage(data)
	if err != nil {
		return
	}
	sender, err := message.Recover()
	if err != nil {
		return
	}
	err = d.archive.Record(archive.Entry{
		Height:     message.Vote.Height,
		View:       message.Vote.View,
		ViewChange: message.Vote.ViewChange,
		BlockHash:  message.Vote.BlockHash,
		Sender:     sender,
		Signature:  message.Signature,
		Raw:        data,
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to archive a message")
	}
}

func (d *devnet) report(head *chain.Header, elapsed time.Duration) error {
	for _, node := range d.nodes {
		stored, err := node.store.Head()
		if err != nil {
			return err
		}
		if stored.Hash() != head.Hash() {
			return fmt.Errorf("node %d stored head %s, want %s",
				node.index, stored.Hash(), head.Hash())
		}
	}
	event := d.log.Info().
		Uint64("head", head.Number).
		Stringer("hash", head.Hash()).
		Dur("elapsed", elapsed)
	if d.archive != nil {
		archived, err := d.archive.Count()
		if err != nil {
			return err
		}
		event = event.Uint64("archivedMessages", archived)
	}
	event.Msg("devnet finished")
	return nil
}

func (d *devnet) shutdown() {
	for _, node := range d.nodes {
		node.engine.Stop()
		if err := node.store.Close(); err != nil {
			d.log.Warn().Err(err).Int("node", node.index).Msg("failed to close header store")
		}
	}
	if d.archive != nil {
		if err := d.archive.Close(); err != nil {
			d.log.Warn().Err(err).Msg("failed to close message archive")
		}
	}
}
