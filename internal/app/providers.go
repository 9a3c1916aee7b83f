package app

import (
	"os"
	"path/filepath"

	"douyin-scribe/internal/app/audio"
	"douyin-scribe/internal/app/downloader"
	"douyin-scribe/internal/app/locator"
	"douyin-scribe/internal/app/recognizer"
	"douyin-scribe/internal/app/repository"
	"douyin-scribe/internal/app/repository/sqlite"
	"douyin-scribe/internal/app/request"
	"douyin-scribe/internal/app/resolver"
	"douyin-scribe/internal/config"

	"go.uber.org/zap"
)

// historyDBPath is where the processing history lives, relative to the
// working directory.
const historyDBPath = "data/history.db"

func ProvideLogger() (*zap.SugaredLogger, func(), error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, err
	}
	return logger.Sugar(), func() { logger.Sync() }, nil
}

func ProvideSettings(configPath string) (*config.Settings, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ProvideRequestClient(cfg *config.Settings) *request.Client {
	return request.New(request.WithCookie(cfg.DouyinCookie))
}

func ProvideResolver(client *request.Client, log *zap.SugaredLogger) *resolver.Resolver {
	return resolver.New(client, log)
}

// ProvideLocator wires the three location strategies in preference order:
// third-party API, then redirect chasing, then the headless browser.
func ProvideLocator(res *resolver.Resolver, client *request.Client, log *zap.SugaredLogger) *locator.Locator {
	return locator.New(res, log,
		locator.NewAPIStrategy("", client, log),
		locator.NewRedirectStrategy(client, log),
		locator.NewBrowserStrategy(client.Cookie(), log),
	)
}

func ProvideLedger(cfg *config.Settings) (*downloader.Ledger, error) {
	return downloader.LoadLedger(filepath.Join(cfg.DownloadPath, "downloaded.json"))
}

func ProvideProber(cfg *config.Settings) downloader.Prober {
	return &downloader.FFmpegProber{FFmpegPath: cfg.FFmpegPath}
}

func ProvideDownloadManager(client *request.Client, ledger *downloader.Ledger,
	prober downloader.Prober, log *zap.SugaredLogger) *downloader.Manager {
	return downloader.NewManager(client, ledger, prober, log)
}

func ProvideAudioProcessor(cfg *config.Settings, log *zap.SugaredLogger) *audio.Processor {
	return audio.NewProcessor(cfg.FFmpegPath, log)
}

func ProvideRecognizer(cfg *config.Settings, proc *audio.Processor, log *zap.SugaredLogger) recognizer.Recognizer {
	return recognizer.NewFromSettings(cfg, proc, log)
}

func ProvideHistoryDAO() (repository.HistoryDAO, func(), error) {
	if err := os.MkdirAll(filepath.Dir(historyDBPath), os.ModePerm); err != nil {
		return nil, nil, err
	}
	db, err := sqlite.NewHistoryDB(historyDBPath)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}
