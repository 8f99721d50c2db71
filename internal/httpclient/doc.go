// Package httpclient provides the HTTP plumbing used by the checkout executor.
//
// # Transport
//
// [NewTransport] builds one connection pool sized for the highest concurrency
// level of an experiment:
//
//	transport := httpclient.NewTransport(200)
//	defer transport.CloseIdleConnections()
//
// # Sessions
//
// A [Session] is the per-instance communication context. It owns a cookie jar
// so any affinity cookie set by the load balancer on the first request is
// presented on the following ones, and it is released with [Session.Close]:
//
//	factory := httpclient.NewSessionFactory(transport, false)
//	session, err := factory.NewSession()
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
// With isolation enabled every session clones the transport and closes its
// idle connections on release, so no connection is reused across instances.
package httpclient
