package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/jose-valero/rally-bot/internal/adapters/discord"
	"github.com/jose-valero/rally-bot/internal/adapters/health"
	"github.com/jose-valero/rally-bot/internal/adapters/voice"
	"github.com/jose-valero/rally-bot/internal/app/service"
	"github.com/jose-valero/rally-bot/internal/infra/config"
	"github.com/jose-valero/rally-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB lista y migrada")

	// Repos
	settingsRepo := storage.NewSettingsRepo(db)
	cueRepo := storage.NewCueRepo(db)
	exportRepo := storage.NewExportRepo(db)

	// Discord session
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	// Adapters
	gw := discordrouter.NewGateway(s)
	tr := voice.New(s)

	// Services
	store := service.NewRosterStore()
	voiceMgr := service.NewVoiceSessionManager(tr, gw, settingsRepo, service.DefaultVoiceDurations())
	lifecycle := service.NewChannelLifecycle(gw, store, voiceMgr, settingsRepo, 0)
	playback := service.NewPlaybackController(tr, voiceMgr, settingsRepo)
	rallies := service.NewRallyCoordinator(
		store, gw, lifecycle, voiceMgr, playback,
		settingsRepo, cueRepo, cfg.DefaultCues,
	)
	exporter := service.NewExporter(gw, store, exportRepo)

	// Health endpoints
	go health.New(db).Start(cfg.HTTPAddr)

	// Router
	r := discordrouter.NewRouter(
		s,
		cfg.DiscordGuild,
		cfg.AdminRoleIDs,
		rallies,
		voiceMgr,
		lifecycle,
		exporter,
		settingsRepo,
		cueRepo,
	)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Printf("✅ comandos registrados (guild=%q)", cfg.DiscordGuild)

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}
