package app

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーと空き枠集計ジョブを起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はストアのスキーマを作成・更新することを示す。
	CommandMigrate Command = "migrate"
	// CommandSeed はシードファイルからマスターを投入することを示す。
	CommandSeed Command = "seed"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析し、残りの引数とともに返す。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	switch args[0] {
	case "serve":
		return CommandServe, args[1:]
	case "migrate":
		return CommandMigrate, args[1:]
	case "seed":
		return CommandSeed, args[1:]
	case "healthcheck":
		return CommandHealthcheck, args[1:]
	default:
		return CommandServe, args
	}
}

// seedOptions はseedサブコマンドのオプション。
type seedOptions struct {
	File string
}

// parseSeedFlags はseedサブコマンドのフラグを解析する。
// --fileが省略された場合は組み込みのデモデータを使う。
func parseSeedFlags(args []string, output io.Writer) (seedOptions, error) {
	var opts seedOptions

	fs := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVarP(&opts.File, "file", "f", "", "シードYAMLファイルのパス（省略時は組み込みのデモデータ）")

	if err := fs.Parse(args); err != nil {
		return seedOptions{}, fmt.Errorf("invalid seed flags: %w", err)
	}
	if fs.NArg() > 0 {
		return seedOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// healthcheckOptions はhealthcheckサブコマンドのオプション。
type healthcheckOptions struct {
	Port string
}

// parseHealthcheckFlags はhealthcheckサブコマンドのフラグを解析する。
// --portの既定値はdefaultPort。
func parseHealthcheckFlags(args []string, defaultPort string, output io.Writer) (healthcheckOptions, error) {
	var opts healthcheckOptions

	fs := pflag.NewFlagSet("healthcheck", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVarP(&opts.Port, "port", "p", defaultPort, "ヘルスチェック先のポート")

	if err := fs.Parse(args); err != nil {
		return healthcheckOptions{}, fmt.Errorf("invalid healthcheck flags: %w", err)
	}
	return opts, nil
}
