// Command mmrverify checks an MMR inclusion proof bundle against its
// expected root, optionally cross-checking the bundle's signed root
// statement first. Grounded on weiihann-go-ethereum's cmd/geth/dbcmd.go
// command/flag idiom.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/datatrails/go-datatrails-common/azblob"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-merklelog/massifs"
	"github.com/datatrails/go-datatrails-merklelog/mmr"
	"github.com/datatrails/go-datatrails-merklelog/mmrblobs"
	"github.com/urfave/cli/v2"
)

var (
	bundleDirFlag = &cli.StringFlag{
		Name:  "bundle",
		Usage: "path to a local directory holding bundle files",
	}
	tenantFlag = &cli.StringFlag{
		Name:  "tenant",
		Usage: "tenant identity, required when --azure is set",
	}
	azureFlag = &cli.BoolFlag{
		Name:  "azure",
		Usage: "fetch the bundle from Azure Blob Storage (dev emulator) instead of --bundle",
	}
	containerFlag = &cli.StringFlag{
		Name:  "container",
		Usage: "azure blob container, defaults to --tenant",
	}
	mmrSizeFlag = &cli.Uint64Flag{
		Name:  "mmr-size",
		Usage: "mmr size of the bundle to fetch from --bundle (ignored with --azure, which fetches the latest)",
	}
	rootFlag = &cli.StringFlag{
		Name:     "root",
		Usage:    "hex-encoded expected root to verify the proof against",
		Required: true,
	}
	externalFlag = &cli.StringFlag{
		Name:  "external",
		Usage: "hex-encoded external additional authenticated data for the COSE Sign1 signature, if any",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "on rejection, dump the decoded proof and leaf streams to stderr",
	}

	verifyCommand = &cli.Command{
		Name:      "verify",
		Usage:     "verify an inclusion proof bundle against an expected root",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			bundleDirFlag, tenantFlag, azureFlag, containerFlag,
			mmrSizeFlag, rootFlag, externalFlag, debugFlag,
		},
		Action: runVerify,
	}
)

func main() {
	app := &cli.App{
		Name:  "mmrverify",
		Usage: "verify MMR inclusion proof bundles",
		Commands: []*cli.Command{
			verifyCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runVerify(c *cli.Context) error {
	logger.New("MMRVERIFY")
	log := logger.Sugar.WithServiceName("mmrverify")

	root, err := hex.DecodeString(c.String(rootFlag.Name))
	if err != nil {
		return fmt.Errorf("--root: %w", err)
	}

	var external []byte
	if c.IsSet(externalFlag.Name) {
		external, err = hex.DecodeString(c.String(externalFlag.Name))
		if err != nil {
			return fmt.Errorf("--external: %w", err)
		}
	}

	ctx := context.Background()
	bundle, err := fetchBundle(ctx, log, c)
	if err != nil {
		return fmt.Errorf("fetching bundle: %w", err)
	}
	log.Infof("bundle covers %d leaves at mmr size %d", bundle.Header.LeafCount(), bundle.Header.MMRSize)

	if len(bundle.SignedRoot) > 0 {
		if err := checkSignedRoot(bundle, root, external); err != nil {
			return fmt.Errorf("signed root statement rejected: %w", err)
		}
		log.Infof("signed root statement verified for mmr size %d", bundle.Header.MMRSize)
	} else {
		log.Infof("bundle carries no signed root statement; checking inclusion only")
	}

	merger := mmr.NewBlake2bMerger(mmr.DefaultPersonal)
	err = mmr.VerifyInclusion(
		root, bundle.Header.MMRSize,
		mmr.NewBufferReader(bundle.ProofStream),
		mmr.NewBufferReader(bundle.LeafStream),
		merger,
	)
	if err != nil {
		if c.Bool(debugFlag.Name) {
			fmt.Fprintln(os.Stderr, "proof stream:", mmr.FormatProofStream(bundle.ProofStream))
			fmt.Fprintln(os.Stderr, "leaf stream:")
			fmt.Fprintln(os.Stderr, mmr.FormatLeafStream(bundle.LeafStream))
		}
		return fmt.Errorf("proof rejected: code=%d: %w", mmr.Code(err), err)
	}

	fmt.Println("OK")
	return nil
}

// fetchBundle resolves --bundle or --azure into a decoded proof bundle.
func fetchBundle(ctx context.Context, log logger.Logger, c *cli.Context) (mmrblobs.ProofBundle, error) {
	if c.Bool(azureFlag.Name) {
		tenant := c.String(tenantFlag.Name)
		if tenant == "" {
			return mmrblobs.ProofBundle{}, fmt.Errorf("--tenant is required with --azure")
		}
		container := c.String(containerFlag.Name)
		if container == "" {
			container = tenant
		}
		storer, err := azblob.NewDev(azblob.NewDevConfigFromEnv(), container)
		if err != nil {
			return mmrblobs.ProofBundle{}, fmt.Errorf("connecting to blob store: %w", err)
		}
		reader := mmrblobs.NewProofBlobReader(log, storer)
		return reader.GetLatestBundle(ctx, tenant)
	}

	bundleDir := c.String(bundleDirFlag.Name)
	if bundleDir == "" {
		return mmrblobs.ProofBundle{}, fmt.Errorf("one of --bundle or --azure is required")
	}
	if !c.IsSet(mmrSizeFlag.Name) {
		return mmrblobs.ProofBundle{}, fmt.Errorf("--mmr-size is required with --bundle")
	}
	dirCache := massifs.NewDirCache(log, nil, nil)
	reader := massifs.NewBundleReader(log, dirCache, massifs.LocalDirResolver{})
	return reader.GetBundle(ctx, bundleDir, c.Uint64(mmrSizeFlag.Name))
}

// checkSignedRoot cross-checks that the bundle's signed root statement was
// produced over exactly the expected root and mmr size, following the
// pattern of re-attaching the independently known root before verifying
// (the signer always transmits the root detached).
func checkSignedRoot(bundle mmrblobs.ProofBundle, root, external []byte) error {
	codec, err := mmrblobs.NewRootSignerCodec()
	if err != nil {
		return err
	}
	signed, state, err := mmrblobs.DecodeSignedRoot(codec, bundle.SignedRoot)
	if err != nil {
		return err
	}
	if state.MMRSize != bundle.Header.MMRSize {
		return fmt.Errorf("signed statement mmr size %d does not match bundle header %d", state.MMRSize, bundle.Header.MMRSize)
	}
	state.Root = root
	return mmrblobs.VerifySignedRoot(codec, dtcose.NewCWTPublicKeyProvider(signed), signed, state, external)
}
