package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/niktheblak/waterlevel-uploader/internal/uploader"
	"github.com/niktheblak/waterlevel-uploader/pkg/auth"
	"github.com/niktheblak/waterlevel-uploader/pkg/documents"
	"github.com/niktheblak/waterlevel-uploader/pkg/result"
	"github.com/niktheblak/waterlevel-uploader/pkg/sensor"
	"github.com/niktheblak/waterlevel-uploader/pkg/store"
	"github.com/niktheblak/waterlevel-uploader/pkg/timestamp"
)

var errUploadFailed = errors.New("upload failed")

var uploadCmd = &cobra.Command{
	Use:          "upload",
	Short:        "Upload one water level reading",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			projectID  = viper.GetString("project_id")
			databaseID = viper.GetString("database_id")
			collection = viper.GetString("collection")
			backend    = viper.GetString("store.backend")
			timeout    = viper.GetDuration("timeout")
			output     = viper.GetString("output")
		)
		depth, err := cmd.Flags().GetFloat64("depth")
		if err != nil {
			return err
		}
		battery, err := cmd.Flags().GetFloat64("battery")
		if err != nil {
			return err
		}
		path, err := cmd.Flags().GetString("path")
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
		defer cancelTimeout()

		logger.LogAttrs(
			ctx,
			slog.LevelInfo,
			"Connecting to document store",
			slog.String("backend", backend),
			slog.String("project", projectID),
			slog.String("database", databaseID),
			slog.String("collection", collection),
		)
		s, err := store.New(ctx, storeConfig(backend))
		if err != nil {
			return err
		}
		docs := documents.New(s, documents.Options{Logger: logger})
		defer func() {
			if err := docs.Close(); err != nil {
				logger.Error("Failed to close document store", "err", err)
			}
		}()

		failures := new(result.RecordingSink)
		u, err := uploader.New(docs, uploader.Config{
			ProjectID:  projectID,
			DatabaseID: databaseID,
			Collection: collection,
			Mask:       viper.GetStringSlice("mask"),
			Formatter:  formatter(viper.GetBool("timestamp.utc")),
			Sink:       result.MultiSink(outputSink(cmd, output), failures),
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		if path != "" {
			u.CreateDocumentAsync(ctx, u.CreateWaterLevelDocument(depth, battery), path)
		} else if err := u.Upload(ctx, sensor.Reading{Depth: depth, BatteryVoltage: battery}); err != nil {
			return err
		}
		u.Wait()
		for _, e := range failures.Entries() {
			if e.Kind == "error" {
				return fmt.Errorf("%w: %s (code %d)", errUploadFailed, e.Message, e.Code)
			}
		}
		return nil
	},
}

func storeConfig(backend string) store.Config {
	return store.Config{
		Backend: backend,
		Firestore: store.FirestoreConfig{
			BaseURL:    viper.GetString("firestore.base_url"),
			Authorizer: auth.FromConfig(viper.GetString("firestore.token"), viper.GetString("firestore.api_key")),
			Timeout:    viper.GetDuration("firestore.timeout"),
		},
		Postgres: store.PostgresConfig{
			ConnString: fmt.Sprintf(
				"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				viper.GetString("postgres.host"),
				viper.GetInt("postgres.port"),
				viper.GetString("postgres.username"),
				viper.GetString("postgres.password"),
				viper.GetString("postgres.database"),
				viper.GetString("postgres.sslmode"),
			),
			Table: viper.GetString("postgres.table"),
		},
		SQLite: store.SQLiteConfig{
			Path:  viper.GetString("sqlite.path"),
			Table: viper.GetString("sqlite.table"),
		},
		MQTT: store.MQTTConfig{
			Broker:      viper.GetString("mqtt.broker"),
			Port:        viper.GetInt("mqtt.port"),
			ClientID:    viper.GetString("mqtt.client_id"),
			Username:    viper.GetString("mqtt.username"),
			Password:    viper.GetString("mqtt.password"),
			TopicPrefix: viper.GetString("mqtt.topic_prefix"),
		},
		Logger: logger,
	}
}

func formatter(utc bool) *timestamp.Formatter {
	if utc {
		f := timestamp.UTC()
		f.Logger = logger
		return f
	}
	return &timestamp.Formatter{Logger: logger}
}

func outputSink(cmd *cobra.Command, output string) result.Sink {
	if output == "log" {
		return &result.LogSink{Logger: logger}
	}
	return &result.WriterSink{W: cmd.OutOrStdout()}
}

func init() {
	uploadCmd.Flags().Float64("depth", 0, "water depth")
	uploadCmd.Flags().Float64("battery", 0, "battery voltage")
	uploadCmd.Flags().String("path", "", "document path; defaults to a new document in the collection")
	uploadCmd.Flags().String("project_id", "", "project id")
	uploadCmd.Flags().String("database_id", "", "database id (default is (default))")
	uploadCmd.Flags().String("collection", "", "collection path for new documents")
	uploadCmd.Flags().StringSlice("mask", nil, "fields returned in the response")
	uploadCmd.Flags().Duration("timeout", 0, "upload timeout")
	uploadCmd.Flags().String("output", "", "result output (text, log)")
	uploadCmd.Flags().String("store.backend", "", "document store (firestore, postgres, sqlite, mqtt)")
	uploadCmd.Flags().String("firestore.base_url", "", "Firestore REST API base URL")
	uploadCmd.Flags().String("firestore.token", "", "bearer token")
	uploadCmd.Flags().String("firestore.api_key", "", "web API key")
	uploadCmd.Flags().Duration("firestore.timeout", 0, "HTTP client timeout")
	uploadCmd.Flags().String("postgres.host", "", "host")
	uploadCmd.Flags().Int("postgres.port", 0, "port")
	uploadCmd.Flags().String("postgres.username", "", "username")
	uploadCmd.Flags().String("postgres.password", "", "password")
	uploadCmd.Flags().String("postgres.database", "", "database name")
	uploadCmd.Flags().String("postgres.table", "", "table name")
	uploadCmd.Flags().String("postgres.sslmode", "", "SSL mode")
	uploadCmd.Flags().String("sqlite.path", "", "SQLite database file")
	uploadCmd.Flags().String("sqlite.table", "", "table name")
	uploadCmd.Flags().String("mqtt.broker", "", "MQTT broker host")
	uploadCmd.Flags().Int("mqtt.port", 0, "MQTT broker port")
	uploadCmd.Flags().String("mqtt.client_id", "", "MQTT client id")
	uploadCmd.Flags().String("mqtt.username", "", "MQTT username")
	uploadCmd.Flags().String("mqtt.password", "", "MQTT password")
	uploadCmd.Flags().String("mqtt.topic_prefix", "", "MQTT topic prefix")
	uploadCmd.Flags().Bool("timestamp.utc", false, "render timestamps in UTC instead of local time")

	cobra.CheckErr(viper.BindPFlags(uploadCmd.Flags()))

	viper.SetDefault("store.backend", "firestore")
	viper.SetDefault("collection", "levels")
	viper.SetDefault("timeout", 30*time.Second)
	viper.SetDefault("output", "text")
	viper.SetDefault("firestore.base_url", store.DefaultFirestoreURL)
	viper.SetDefault("firestore.timeout", 10*time.Second)
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.table", "documents")
	viper.SetDefault("postgres.sslmode", "disable")
	viper.SetDefault("sqlite.path", "waterlevel.db")
	viper.SetDefault("sqlite.table", "documents")
	viper.SetDefault("mqtt.broker", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.client_id", "waterlevel-uploader")
	viper.SetDefault("mqtt.topic_prefix", "documents")

	rootCmd.AddCommand(uploadCmd)
}
