package http

import (
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/subm"
)

func (httpserver *HttpServer) listSubmissions(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	query := r.URL.Query()
	checked, err := subm.ParseChecked(query.Get("checked"))
	if err != nil {
		httpjson.HandleError(logger, w,
			subm.NewErrInvalidField("checked", "checked must be all, checked or unchecked").SetDebug(err))
		return
	}

	filter := subm.Filter{
		Search:   query.Get("search"),
		TaskType: query.Get("taskType"),
		Date:     query.Get("date"),
		Checked:  checked,
	}

	subms, err := httpserver.submSrvc.List(r.Context(), filter)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}
	if subms == nil {
		subms = []subm.Submission{}
	}

	httpjson.WriteSuccessJson(w, subms)
}
