// Package httpclient builds the shared *http.Client used by every scenario.
//
// One client serves all workers, so the idle pool is sized from the largest
// worker cap to keep connections reused under load:
//
//	client := httpclient.NewClient(30*time.Second, cfg.Packs.MaxWorkers)
package httpclient
