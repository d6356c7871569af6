package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	passkeysdk "github.com/passkey-wallet/go-sdk"
	"github.com/passkey-wallet/go-sdk/ceremony/bridge"
	"github.com/passkey-wallet/go-sdk/config"
	"github.com/passkey-wallet/go-sdk/store"
	"github.com/passkey-wallet/go-sdk/types"
	"github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// ceremonies wait for the user to open the bridge page
const ceremonyWaitTimeout = 5 * time.Minute

var (
	Version string

	envConfig = config.LoadConfigFromEnv()

	passkeyClient passkeysdk.PasskeyClient
	ceremonyPage  *bridge.Bridge
)

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "Passkey Wallet CLI"
	app.Usage = "passkey-bound wallet command line interface"
	app.Commands = append(
		app.Commands,
		&registerCommand,
		&recoverCommand,
		&importCommand,
		&unlockCommand,
		&listCommand,
		&currentCommand,
		&switchCommand,
		&renameCommand,
		&deleteCommand,
		&receiveCommand,
		&versionCommand,
	)
	app.Flags = []cli.Flag{
		datadirFlag, storeFlag, rpIDFlag, rpNameFlag, originFlag, bridgeAddrFlag, verboseFlag,
	}
	app.Before = func(ctx *cli.Context) error {
		if ctx.Args().First() == "version" {
			return nil
		}
		client, err := getPasskeyClient(ctx)
		if err != nil {
			return fmt.Errorf("error initializing passkey client: %v", err)
		}
		passkeyClient = client
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		if ceremonyPage != nil {
			// nolint
			ceremonyPage.Close()
		}
		if passkeyClient != nil {
			passkeyClient.Stop()
		}
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

var (
	datadirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Specify the data directory",
		Value: envConfig.Datadir,
	}
	storeFlag = &cli.StringFlag{
		Name:  "store",
		Usage: "storage backend: inmemory, file, kv or sql",
		Value: envConfig.StoreType,
	}
	rpIDFlag = &cli.StringFlag{
		Name:  "rp-id",
		Usage: "relying party id the passkeys are bound to",
		Value: envConfig.RPID,
	}
	rpNameFlag = &cli.StringFlag{
		Name:  "rp-name",
		Usage: "relying party name shown by the authenticator",
		Value: envConfig.RPName,
	}
	originFlag = &cli.StringFlag{
		Name:  "origin",
		Usage: "origin whose host is used as relying party id when none is set",
		Value: envConfig.Origin,
	}
	bridgeAddrFlag = &cli.StringFlag{
		Name:  "bridge-addr",
		Usage: "address of the local page running the passkey ceremonies",
		Value: envConfig.BridgeAddr,
	}
	verboseFlag = &cli.BoolFlag{
		Name:        "verbose",
		Usage:       "enable debug logs",
		Value:       false,
		DefaultText: "false",
	}

	usernameFlag = &cli.StringFlag{
		Name:     "username",
		Usage:    "label of the wallet",
		Required: true,
	}
	idFlag = &cli.StringFlag{
		Name:  "id",
		Usage: "credential id of the wallet, defaults to the current one",
	}
	privateKeyFlag = &cli.StringFlag{
		Name:  "prvkey",
		Usage: "hex private key to import, prompted for when omitted",
	}
	showKeyFlag = &cli.BoolFlag{
		Name:  "show-key",
		Usage: "print the unlocked private key",
	}
	pngFlag = &cli.StringFlag{
		Name:  "png",
		Usage: "also write the address QR code to this png file",
	}
)

var (
	registerCommand = cli.Command{
		Name:   "register",
		Usage:  "Create a passkey and the wallet derived from it",
		Flags:  []cli.Flag{usernameFlag},
		Action: register,
	}
	recoverCommand = cli.Command{
		Name:   "recover",
		Usage:  "Recover a wallet from any passkey of the relying party",
		Action: recoverWallet,
	}
	importCommand = cli.Command{
		Name:   "import",
		Usage:  "Bring an existing private key under the custody of a new passkey",
		Flags:  []cli.Flag{usernameFlag, privateKeyFlag},
		Action: importWallet,
	}
	unlockCommand = cli.Command{
		Name:   "unlock",
		Usage:  "Unlock an imported wallet",
		Flags:  []cli.Flag{idFlag, showKeyFlag},
		Action: unlock,
	}
	listCommand = cli.Command{
		Name:   "list",
		Usage:  "List known wallets",
		Action: list,
	}
	currentCommand = cli.Command{
		Name:   "current",
		Usage:  "Show the current wallet",
		Action: current,
	}
	switchCommand = cli.Command{
		Name:   "switch",
		Usage:  "Make another wallet current",
		Flags:  []cli.Flag{&cli.StringFlag{Name: idFlag.Name, Usage: idFlag.Usage, Required: true}},
		Action: switchWallet,
	}
	renameCommand = cli.Command{
		Name:  "rename",
		Usage: "Rename a wallet",
		Flags: []cli.Flag{
			idFlag, &cli.StringFlag{Name: "name", Usage: "new label", Required: true},
		},
		Action: rename,
	}
	deleteCommand = cli.Command{
		Name:   "delete",
		Usage:  "Delete a wallet after authenticating with its passkey",
		Flags:  []cli.Flag{idFlag},
		Action: deleteWallet,
	}
	receiveCommand = cli.Command{
		Name:   "receive",
		Usage:  "Show the address of a wallet",
		Flags:  []cli.Flag{idFlag, pngFlag},
		Action: receive,
	}
	versionCommand = cli.Command{
		Name:  "version",
		Usage: "Show the version of the CLI",
		Action: func(ctx *cli.Context) error {
			fmt.Printf("Passkey Wallet CLI version: %s\n", Version)
			return nil
		},
	}
)

func register(ctx *cli.Context) error {
	ceremonyCtx, cancel, err := startCeremonies(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	credential, err := passkeyClient.Register(ceremonyCtx, ctx.String(usernameFlag.Name))
	if err != nil {
		return err
	}
	stored, err := getWallet(ctx.Context, credential.CredentialID)
	if err != nil {
		return err
	}
	return printJSON(walletInfo(*stored))
}

func recoverWallet(ctx *cli.Context) error {
	ceremonyCtx, cancel, err := startCeremonies(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	result, err := passkeyClient.Recover(ceremonyCtx)
	if err != nil {
		return err
	}
	defer result.Wallet.Wipe()

	return printJSON(map[string]any{
		"credential_id":   result.Wallet.Credential.CredentialID,
		"username":        result.Wallet.Credential.Username,
		"address":         result.Wallet.Address,
		"already_existed": result.AlreadyExisted,
	})
}

func importWallet(ctx *cli.Context) error {
	privateKey, err := readPrivateKey(ctx)
	if err != nil {
		return err
	}

	ceremonyCtx, cancel, err := startCeremonies(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	w, err := passkeyClient.ImportFromPrivateKey(
		ceremonyCtx, privateKey, ctx.String(usernameFlag.Name),
	)
	if err != nil {
		return err
	}
	defer w.Wipe()

	return printJSON(map[string]any{
		"credential_id": w.Credential.CredentialID,
		"username":      w.Credential.Username,
		"address":       w.Address,
	})
}

func unlock(ctx *cli.Context) error {
	stored, err := selectWallet(ctx)
	if err != nil {
		return err
	}

	ceremonyCtx, cancel, err := startCeremonies(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	w, err := passkeyClient.Unlock(ceremonyCtx, *stored)
	if err != nil {
		return err
	}
	defer w.Wipe()

	resp := map[string]any{
		"credential_id": w.Credential.CredentialID,
		"address":       w.Address,
	}
	if ctx.Bool(showKeyFlag.Name) {
		resp["private_key"] = w.PrivateKeyHex()
	}
	return printJSON(resp)
}

func list(ctx *cli.Context) error {
	wallets, err := passkeyClient.ListWallets(ctx.Context)
	if err != nil {
		return err
	}
	current, err := passkeyClient.GetCurrent(ctx.Context)
	if err != nil {
		return err
	}

	resp := make([]map[string]any, 0, len(wallets))
	for _, w := range wallets {
		info := walletInfo(w)
		info["current"] = current != nil && current.CredentialID == w.CredentialID
		resp = append(resp, info)
	}
	return printJSON(resp)
}

func current(ctx *cli.Context) error {
	stored, err := selectWallet(ctx)
	if err != nil {
		return err
	}
	return printJSON(walletInfo(*stored))
}

func switchWallet(ctx *cli.Context) error {
	ceremonyCtx, cancel, err := startCeremonies(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	w, err := passkeyClient.SwitchWallet(ceremonyCtx, ctx.String(idFlag.Name))
	if err != nil {
		return err
	}
	defer w.Wipe()

	return printJSON(map[string]any{
		"credential_id": w.Credential.CredentialID,
		"address":       w.Address,
	})
}

func rename(ctx *cli.Context) error {
	stored, err := selectWallet(ctx)
	if err != nil {
		return err
	}
	if err := passkeyClient.RenameWallet(
		ctx.Context, stored.CredentialID, ctx.String("name"),
	); err != nil {
		return err
	}
	stored, err = getWallet(ctx.Context, stored.CredentialID)
	if err != nil {
		return err
	}
	return printJSON(walletInfo(*stored))
}

func deleteWallet(ctx *cli.Context) error {
	stored, err := selectWallet(ctx)
	if err != nil {
		return err
	}

	ceremonyCtx, cancel, err := startCeremonies(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := passkeyClient.DeleteWithAuth(ceremonyCtx, stored.CredentialID); err != nil {
		return err
	}
	return printJSON(map[string]any{"deleted": stored.CredentialID})
}

func receive(ctx *cli.Context) error {
	stored, err := selectWallet(ctx)
	if err != nil {
		return err
	}

	qr, err := qrcode.New(stored.Address, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to create QR code: %w", err)
	}
	fmt.Println(qr.ToSmallString(false))

	if path := ctx.String(pngFlag.Name); path != "" {
		if err := qr.WriteFile(256, path); err != nil {
			return fmt.Errorf("failed to write QR code: %w", err)
		}
	}
	return printJSON(map[string]any{
		"username": stored.Username,
		"address":  stored.Address,
	})
}

func getPasskeyClient(ctx *cli.Context) (passkeysdk.PasskeyClient, error) {
	storeType := ctx.String(storeFlag.Name)
	if !store.ValidStoreType(storeType) {
		return nil, fmt.Errorf("invalid store type %q", storeType)
	}

	sdkStore, err := store.NewStore(store.Config{
		StoreType: storeType,
		BaseDir:   ctx.String(datadirFlag.Name),
	})
	if err != nil {
		return nil, err
	}

	ceremonyPage = bridge.New(ctx.String(bridgeAddrFlag.Name))

	opts := []passkeysdk.ClientOption{
		passkeysdk.WithRelyingParty(ctx.String(rpIDFlag.Name), ctx.String(rpNameFlag.Name)),
		passkeysdk.WithOrigin(ctx.String(originFlag.Name)),
		passkeysdk.WithCeremonyTimeout(envConfig.CeremonyTimeout),
	}
	if ctx.Bool(verboseFlag.Name) {
		opts = append(opts, passkeysdk.WithVerbose())
	}

	client, err := passkeysdk.NewPasskeyClient(sdkStore, ceremonyPage, opts...)
	if err != nil {
		sdkStore.Close()
		return nil, err
	}
	return client, nil
}

func startCeremonies(ctx *cli.Context) (context.Context, context.CancelFunc, error) {
	if err := ceremonyPage.Start(); err != nil {
		return nil, nil, err
	}
	fmt.Printf("open %s in your browser to use your passkey\n", ceremonyPage.URL())

	ceremonyCtx, cancel := context.WithTimeout(ctx.Context, ceremonyWaitTimeout)
	return ceremonyCtx, cancel, nil
}

// selectWallet returns the wallet named by --id, or the current one.
func selectWallet(ctx *cli.Context) (*types.StoredWallet, error) {
	id := ctx.String(idFlag.Name)
	if id == "" {
		current, err := passkeyClient.GetCurrent(ctx.Context)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("no current wallet, run 'register' or 'recover' first")
		}
		id = current.CredentialID
	}
	return getWallet(ctx.Context, id)
}

func getWallet(ctx context.Context, id string) (*types.StoredWallet, error) {
	wallets, err := passkeyClient.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range wallets {
		if w.CredentialID == id {
			return &w, nil
		}
	}
	return nil, fmt.Errorf("wallet %s: %w", id, passkeysdk.ErrNotFound)
}

func walletInfo(w types.StoredWallet) map[string]any {
	return map[string]any{
		"credential_id": w.CredentialID,
		"username":      w.Username,
		"address":       w.Address,
		"created_at":    w.CreatedAt.Format(time.RFC3339),
		"imported":      w.IsImported,
	}
}

func readPrivateKey(ctx *cli.Context) (string, error) {
	privateKey := ctx.String(privateKeyFlag.Name)
	if len(privateKey) == 0 {
		fmt.Print("private key to import: ")
		buf, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		privateKey = string(buf)
	}
	return strings.TrimSpace(privateKey), nil
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}
