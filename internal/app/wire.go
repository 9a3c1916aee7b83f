//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"douyin-scribe/internal/app/audio"
	"douyin-scribe/internal/app/batch"
	"douyin-scribe/internal/app/downloader"
	"douyin-scribe/internal/app/locator"
)

func InitializeOrchestrator(configPath string) (*batch.Orchestrator, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideSettings,
		ProvideRequestClient,
		ProvideResolver,
		ProvideLocator,
		ProvideLedger,
		ProvideProber,
		ProvideDownloadManager,
		ProvideAudioProcessor,
		ProvideRecognizer,
		ProvideHistoryDAO,
		wire.Bind(new(batch.VideoLocator), new(*locator.Locator)),
		wire.Bind(new(batch.Fetcher), new(*downloader.Manager)),
		wire.Bind(new(batch.AudioExtractor), new(*audio.Processor)),
		batch.NewOrchestrator,
	)
	return nil, nil, nil
}
