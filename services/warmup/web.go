package warmup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/poststudio/lib/mycontext"
	"github.com/MarcGrol/poststudio/lib/myerrors"
	"github.com/MarcGrol/poststudio/lib/myhttp"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/mypublisher"
	"github.com/MarcGrol/poststudio/lib/myuuid"
)

// Pinger is implemented by the stores the server depends on.
type Pinger interface {
	Ping(c context.Context) error
}

type webService struct {
	logger    mylog.Logger
	stores    map[string]Pinger
	publisher mypublisher.Publisher
	uuider    myuuid.UUIDer
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(stores map[string]Pinger, pub mypublisher.Publisher, uuider myuuid.UUIDer) *webService {
	return &webService{
		logger:    mylog.New("warmup"),
		stores:    stores,
		publisher: pub,
		uuider:    uuider,
	}
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := s.check(c)

		pubErr := s.publisher.Publish(c, TopicName, WarmupKicked{
			UID:     s.uuider.Create(),
			Healthy: err == nil,
		})
		if pubErr != nil {
			s.logger.Log(c, "", mylog.SeverityWarn, "Error publishing warmup event: %s", pubErr)
		}

		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}

func (s *webService) check(c context.Context) error {
	for name, store := range s.stores {
		err := store.Ping(c)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("store %s not reachable: %w", name, err))
		}
	}
	return nil
}
