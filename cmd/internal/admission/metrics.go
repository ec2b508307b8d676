package admission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var admitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tero_admission_admit_total",
	Help: "Join admission outcomes by result.",
}, []string{"result"})
