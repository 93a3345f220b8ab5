package bridge

import (
	"github.com/dmdmdm-nz/zeroconf"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/tzwatchd/pkg/version"
)

const (
	serviceType   = "_tzwatch._tcp"
	serviceDomain = "local."
)

// advertise announces the bridge over mDNS. The returned func withdraws it.
func advertise(instance string, port int) (func(), error) {
	txt := []string{
		"version=" + version.Version,
		"protocol=" + version.BridgeProtocol,
	}
	server, err := zeroconf.Register(instance, serviceType, serviceDomain, port, txt, nil)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"instance": instance,
		"service":  serviceType,
		"port":     port,
	}).Info("Advertising timezone bridge")
	return server.Shutdown, nil
}
