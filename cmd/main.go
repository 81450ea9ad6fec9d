package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/opengee/gepgdb/cmd/internal/backup"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers/gcp"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers/local"
	"github.com/opengee/gepgdb/cmd/internal/backup/providers/s3"
	"github.com/opengee/gepgdb/cmd/internal/compress"
	"github.com/opengee/gepgdb/cmd/internal/constants"
	"github.com/opengee/gepgdb/cmd/internal/encryption"
	"github.com/opengee/gepgdb/cmd/internal/metrics"
	"github.com/opengee/gepgdb/cmd/internal/postgres"
	"github.com/opengee/gepgdb/cmd/internal/reset"
	"github.com/opengee/gepgdb/cmd/internal/restore"
	"github.com/opengee/gepgdb/cmd/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	moduleName  = "gepgdb"
	cfgFileType = "yaml"

	// Flags
	logLevelFlg = "log-level"
	yesFlg      = "yes"

	dataDirFlg   = "data-dir"
	schemaDirFlg = "schema-dir"

	dbHostFlg     = "host"
	dbPortFlg     = "port"
	dbUserFlg     = "db-user"
	dbPasswordFlg = "db-password"

	backupProviderFlg    = "backup-provider"
	backupScheduleFlg    = "schedule"
	metricsAddrFlg       = "metrics-addr"
	compressionMethodFlg = "compression-method"
	encryptionKeyFlg     = "encryption-key"

	objectsToKeepFlg = "object-max-keep"
	objectPrefixFlg  = "object-prefix"

	dumpPathFlg = "dump-path"

	restoreVersionFlg = "version"

	s3BucketNameFlg = "s3-bucket-name"
	s3RegionFlg     = "s3-region"
	s3EndpointFlg   = "s3-endpoint"
	s3AccessKeyFlg  = "s3-access-key"
	//nolint
	s3SecretKeyFlg = "s3-secret-key"

	gcpBucketNameFlg     = "gcp-bucket-name"
	gcpBucketLocationFlg = "gcp-bucket-location"
	gcpProjectFlg        = "gcp-project"
)

// version is set via ldflags
var version = "devel"

var (
	cfgFile string
	logger  *zap.SugaredLogger
	cluster *postgres.Cluster
	bp      providers.BackupProvider
	stop    context.Context
)

var rootCmd = &cobra.Command{
	Use:          moduleName,
	Short:        "resets, backs up and restores the postgres databases of the earth server",
	Long:         "administrative tool that recreates, dumps and restores the application databases (" + strings.Join(constants.Databases, ", ") + ") by sequencing the postgres toolchain. running without a subcommand performs a soft reset.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		initConfig()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// default mode
		return softCmd.RunE(cmd, args)
	},
}

var softCmd = &cobra.Command{
	Use:   "soft",
	Short: "drops and recreates the application databases, the cluster stays untouched",
	RunE: func(cmd *cobra.Command, args []string) error {
		initSignalHandlers()
		initCluster()

		if !confirmed("this drops and recreates all application databases") {
			return errors.New("aborted")
		}

		resetter := reset.New(&reset.ResetterConfig{
			Log:     logger.Named("reset"),
			Cluster: cluster,
		})

		return resetter.Soft(stop)
	},
}

var hardCmd = &cobra.Command{
	Use:   "hard",
	Short: "wipes the data directory, re-initializes the cluster and recreates the application databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		initSignalHandlers()
		initCluster()

		if !confirmed("this wipes the whole database cluster including all data") {
			return errors.New("aborted")
		}

		resetter := reset.New(&reset.ResetterConfig{
			Log:     logger.Named("reset"),
			Cluster: cluster,
		})

		return resetter.Hard(stop)
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup [dump_path]",
	Short: "dumps all application databases and ships the archive to the backup provider",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		applyDumpPathArg(args)
		return initBackupProvider()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		initSignalHandlers()
		initCluster()

		comp, err := compress.New(viper.GetString(compressionMethodFlg))
		if err != nil {
			return err
		}

		enc, err := newEncrypter()
		if err != nil {
			return err
		}

		config := &backup.BackuperConfig{
			Log:     logger.Named("backup"),
			Cluster: cluster,
			BP:      bp,
			Comp:    comp,
			Enc:     enc,
		}

		schedule := viper.GetString(backupScheduleFlg)
		if schedule == "" {
			return backup.New(config).Run(stop)
		}

		m := metrics.New()
		m.Start(logger.Named("metrics"), viper.GetString(metricsAddrFlg))
		config.Metrics = m

		return backup.New(config).Start(stop, schedule)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [dump_path]",
	Short: "restores the application databases from a dump archive",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		applyDumpPathArg(args)
		return initBackupProvider()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		initSignalHandlers()
		initCluster()

		if !confirmed("this replaces the contents of all application databases with the dump archive") {
			return errors.New("aborted")
		}

		restorer, err := newRestorer()
		if err != nil {
			return err
		}

		backupVersion, err := restorer.Resolve(stop, restoreVersionArg(cmd))
		if err != nil {
			return err
		}

		return restorer.Restore(stop, backupVersion)
	},
}

var restoreListCmd = &cobra.Command{
	Use:     "list-versions",
	Aliases: []string{"ls"},
	Short:   "lists the available dump archives",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initBackupProvider()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		initSignalHandlers()

		versions, err := bp.ListBackups(stop)
		if err != nil {
			return fmt.Errorf("error listing dump archives: %w", err)
		}

		printVersionsTable(os.Stdout, versions.List())
		return nil
	},
}

func printVersionsTable(out io.Writer, versions []*providers.BackupVersion) {
	table := tablewriter.NewWriter(out)

	table.SetHeader([]string{"Date", "Name", "Version"})
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetRowLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	for _, v := range versions {
		table.Append([]string{v.Date.Format(time.RFC3339), v.Name, v.Version})
	}

	table.Render()
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [dump_path]",
	Short: "re-initializes the cluster with the installed postgres binaries and reloads the databases from a dump archive",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		applyDumpPathArg(args)
		return initBackupProvider()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		initSignalHandlers()
		initCluster()

		if !confirmed("this wipes the database cluster and reloads it from the dump archive") {
			return errors.New("aborted")
		}

		restorer, err := newRestorer()
		if err != nil {
			return err
		}

		resetter := reset.New(&reset.ResetterConfig{
			Log:      logger.Named("reset"),
			Cluster:  cluster,
			Restorer: restorer,
		})

		return resetter.Upgrade(stop, restoreVersionArg(cmd))
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			panic(err)
		}
		logger.Fatalw("failed executing root command", "error", err)
	}
}

func init() {
	rootCmd.AddCommand(softCmd, hardCmd, backupCmd, restoreCmd, upgradeCmd)

	rootCmd.PersistentFlags().StringP(logLevelFlg, "", "info", "sets the application log level")
	rootCmd.PersistentFlags().BoolP(yesFlg, "y", false, "answers all confirmation prompts with yes")

	rootCmd.PersistentFlags().StringP(dataDirFlg, "", constants.DefaultDataDir, "the directory where the database cluster stores its data in")
	rootCmd.PersistentFlags().StringP(schemaDirFlg, "", constants.DefaultSchemaDir, "the directory containing one schema sql file per application database")

	rootCmd.PersistentFlags().StringP(dbHostFlg, "", "127.0.0.1", "the database server address")
	rootCmd.PersistentFlags().IntP(dbPortFlg, "", 5432, "the database server port")
	rootCmd.PersistentFlags().StringP(dbUserFlg, "", "geuser", "the application database user")
	rootCmd.PersistentFlags().StringP(dbPasswordFlg, "", "", "the application database password")

	rootCmd.PersistentFlags().StringP(backupProviderFlg, "", "local", "the name of the backup provider [local|s3|gcp]")
	rootCmd.PersistentFlags().StringP(compressionMethodFlg, "", "targz", "the compression method to use to compress the dump archives (tar|targz|tarlz4)")
	rootCmd.PersistentFlags().StringP(encryptionKeyFlg, "", "", "when set, dump archives are encrypted before the upload (32 byte AES key)")

	rootCmd.PersistentFlags().Int64P(objectsToKeepFlg, "", constants.DefaultObjectsToKeep, "the number of dump archives to keep at the backup provider")
	rootCmd.PersistentFlags().StringP(objectPrefixFlg, "", "", "the prefix to store the dump archives with at the backup provider")

	rootCmd.PersistentFlags().StringP(dumpPathFlg, "", "", "the directory where the local backup provider stores the dump archives")

	rootCmd.PersistentFlags().StringP(s3BucketNameFlg, "", "", "the name of the s3 backup bucket")
	rootCmd.PersistentFlags().StringP(s3RegionFlg, "", "", "the region of the s3 backup bucket")
	rootCmd.PersistentFlags().StringP(s3EndpointFlg, "", "", "the url to the s3 endpoint")
	rootCmd.PersistentFlags().StringP(s3AccessKeyFlg, "", "", "the s3 access-key-id")
	rootCmd.PersistentFlags().StringP(s3SecretKeyFlg, "", "", "the s3 secret-key-id")

	rootCmd.PersistentFlags().StringP(gcpBucketNameFlg, "", "", "the name of the gcp backup bucket")
	rootCmd.PersistentFlags().StringP(gcpBucketLocationFlg, "", "", "the location of the gcp backup bucket")
	rootCmd.PersistentFlags().StringP(gcpProjectFlg, "", "", "the project id of the gcp backup bucket")

	err := viper.BindPFlags(rootCmd.PersistentFlags())
	if err != nil {
		fmt.Printf("unable to construct root command: %v", err)
		os.Exit(1)
	}

	backupCmd.Flags().StringP(backupScheduleFlg, "", "", "when set, keeps running and takes backups periodically with the given cron schedule")
	backupCmd.Flags().StringP(metricsAddrFlg, "", ":2112", "the bind addr of the metrics server in scheduled mode")

	err = viper.BindPFlags(backupCmd.Flags())
	if err != nil {
		fmt.Printf("unable to construct backup command: %v", err)
		os.Exit(1)
	}

	// both subcommands carry a flag named "version", so they cannot go
	// through viper: the second BindPFlags would shadow the first
	restoreCmd.Flags().StringP(restoreVersionFlg, "", "", "the dump archive version to restore, defaults to the latest")
	upgradeCmd.Flags().StringP(restoreVersionFlg, "", "", "the dump archive version to reload after the upgrade, defaults to the latest")

	restoreCmd.AddCommand(restoreListCmd)
}

func initConfig() {
	viper.SetEnvPrefix("GEPGDB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigType(cfgFileType)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatalw("config file path set explicitly, but unreadable", "error", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("/etc/" + moduleName)
		viper.AddConfigPath("$HOME/." + moduleName)
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			usedCfg := viper.ConfigFileUsed()
			if usedCfg != "" {
				logger.Fatalw("config file unreadable", "config-file", usedCfg, "error", err)
			}
		}
	}

	usedCfg := viper.ConfigFileUsed()
	if usedCfg != "" {
		logger.Infow("read config file", "config-file", usedCfg)
	}
}

func initLogging() {
	level := zap.InfoLevel

	var err error
	if viper.IsSet(logLevelFlg) {
		level, err = zapcore.ParseLevel(viper.GetString(logLevelFlg))
		if err != nil {
			log.Fatalf("can't initialize zap logger: %v", err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}

	logger = l.Sugar()
}

func initSignalHandlers() {
	stop, _ = signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
}

func initCluster() {
	cluster = postgres.New(
		logger.Named("postgres"),
		viper.GetString(dataDirFlg),
		viper.GetString(schemaDirFlg),
		viper.GetString(dbHostFlg),
		viper.GetInt(dbPortFlg),
		viper.GetString(dbUserFlg),
		viper.GetString(dbPasswordFlg),
	)
}

func initBackupProvider() error {
	bpString := viper.GetString(backupProviderFlg)
	var err error
	switch bpString {
	case "local":
		bp, err = local.New(
			logger.Named("backup"),
			&local.BackupProviderConfigLocal{
				LocalBackupPath: viper.GetString(dumpPathFlg),
				ObjectsToKeep:   viper.GetInt64(objectsToKeepFlg),
			},
		)
	case "s3":
		bp, err = s3.New(
			context.Background(),
			logger.Named("backup"),
			&s3.BackupProviderConfigS3{
				ObjectPrefix:  viper.GetString(objectPrefixFlg),
				ObjectsToKeep: viper.GetInt64(objectsToKeepFlg),
				Region:        viper.GetString(s3RegionFlg),
				BucketName:    viper.GetString(s3BucketNameFlg),
				Endpoint:      viper.GetString(s3EndpointFlg),
				AccessKey:     viper.GetString(s3AccessKeyFlg),
				SecretKey:     viper.GetString(s3SecretKeyFlg),
			},
		)
	case "gcp":
		bp, err = gcp.New(
			context.Background(),
			logger.Named("backup"),
			&gcp.BackupProviderConfigGCP{
				ObjectPrefix:   viper.GetString(objectPrefixFlg),
				ObjectsToKeep:  viper.GetInt64(objectsToKeepFlg),
				ProjectID:      viper.GetString(gcpProjectFlg),
				BucketName:     viper.GetString(gcpBucketNameFlg),
				BucketLocation: viper.GetString(gcpBucketLocationFlg),
			},
		)
	default:
		return fmt.Errorf("unsupported backup provider type: %s", bpString)
	}
	if err != nil {
		return fmt.Errorf("error initializing backup provider: %w", err)
	}
	logger.Infow("initialized backup provider", "type", bpString)
	return nil
}

// restoreVersionArg reads the version flag from the invoked subcommand itself.
func restoreVersionArg(cmd *cobra.Command) string {
	version, err := cmd.Flags().GetString(restoreVersionFlg)
	if err != nil {
		return ""
	}
	return version
}

// applyDumpPathArg maps the optional positional dump_path argument onto the
// local provider directory for installer compatibility.
func applyDumpPathArg(args []string) {
	if len(args) == 1 {
		viper.Set(dumpPathFlg, args[0])
	}
}

func newEncrypter() (*encryption.Encrypter, error) {
	key := viper.GetString(encryptionKeyFlg)
	if key == "" {
		return nil, nil
	}

	return encryption.New(logger.Named("encryption"), &encryption.EncrypterConfig{Key: key})
}

func newRestorer() (*restore.Restorer, error) {
	comp, err := compress.New(viper.GetString(compressionMethodFlg))
	if err != nil {
		return nil, err
	}

	enc, err := newEncrypter()
	if err != nil {
		return nil, err
	}

	return restore.New(&restore.RestorerConfig{
		Log:     logger.Named("restore"),
		Cluster: cluster,
		BP:      bp,
		Comp:    comp,
		Enc:     enc,
	}), nil
}

func confirmed(question string) bool {
	if viper.GetBool(yesFlg) {
		return true
	}

	return utils.Confirm(os.Stdin, os.Stdout, question+", continue?")
}
