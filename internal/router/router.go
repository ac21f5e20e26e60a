package router

import (
	"net/http"
	"time"

	"pharmabot/internal/adapters/devicelink"
	mem "pharmabot/internal/adapters/storage/memory"
	"pharmabot/internal/adapters/storage/sqlstore"
	"pharmabot/internal/domain/dashboard"
	"pharmabot/internal/domain/devices"
	"pharmabot/internal/domain/prescriptions"
	"pharmabot/internal/domain/schedules"
	"pharmabot/internal/domain/users"
	"pharmabot/internal/middleware"
	"pharmabot/internal/platform/logger"
	"pharmabot/internal/ports/auth"
	"pharmabot/internal/ports/tx"

	_ "pharmabot/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type DeviceOptions struct {
	OnlineTimeout time.Duration
	StrictPairing bool
	RatePerSec    float64
	RateBurst     int
}

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa SQL (Postgres o SQLite, ya migrado). Si no, in-memory.
	Store *sqlstore.DB

	// Opcional: por defecto HTTP real contra la IP del dispositivo.
	Notifier devices.Notifier

	Device DeviceOptions
	Logger logger.Logger
}

type repos struct {
	users         users.Repository
	prescriptions prescriptions.Repository
	doses         schedules.Repository
	devices       devices.Repository
	queue         devices.CommandQueue
	tx            tx.Transactor
}

func newRepos(store *sqlstore.DB) repos {
	if store != nil {
		devRepo := sqlstore.NewDevicesRepo(store)
		return repos{
			users:         sqlstore.NewUsersRepo(store),
			prescriptions: sqlstore.NewPrescriptionsRepo(store),
			doses:         sqlstore.NewSchedulesRepo(store),
			devices:       devRepo,
			queue:         devRepo,
			tx:            store,
		}
	}

	s := mem.NewStore()
	devRepo := mem.NewDeviceRepo(s)
	return repos{
		users:         mem.NewUserRepo(s),
		prescriptions: mem.NewPrescriptionRepo(s),
		doses:         mem.NewScheduleRepo(s),
		devices:       devRepo,
		queue:         devRepo,
		tx:            s,
	}
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = devicelink.NewNotifier(0)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	rp := newRepos(opts.Store)

	// Services por módulo
	usersSvc := users.NewService(rp.users)
	prescriptionsSvc := prescriptions.NewService(rp.prescriptions, rp.doses, rp.tx)
	devicesSvc := devices.NewService(rp.devices, devices.Options{
		Queue:    rp.queue,
		Notifier: notifier,
		Tx:       rp.tx,
		Logger:   log,
		Timeout:  opts.Device.OnlineTimeout,
	})
	schedulesSvc := schedules.NewService(rp.doses, schedules.Options{
		Medicines:     prescriptionsSvc,
		Devices:       devicesSvc,
		Tx:            rp.tx,
		StrictPairing: opts.Device.StrictPairing,
	})
	dashboardSvc := dashboard.NewService(prescriptionsSvc, schedulesSvc, devicesSvc)

	// Rutas por módulo
	users.RegisterRoutes(r, usersSvc)
	prescriptions.RegisterRoutes(r, prescriptionsSvc, log)
	schedules.RegisterRoutes(r, schedulesSvc, log)
	devices.RegisterRoutes(r, devicesSvc, log)
	dashboard.RegisterRoutes(r, dashboardSvc, log)

	limiter := middleware.NewDeviceRateLimit(opts.Device.RatePerSec, opts.Device.RateBurst)
	r.Route("/device", func(dr chi.Router) {
		dr.Use(limiter.Handler)
		devices.RegisterDeviceRoutes(dr, devices.DeviceAPI{
			Devices:   devicesSvc,
			Schedules: schedulesSvc,
			Users:     usersSvc,
			Logger:    log,
		})
	})

	return r
}
