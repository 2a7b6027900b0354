// Package api serves the indexed data over HTTP.
// @title BuildersIndexer API
// @version 1.0
// @description Liveness and readiness probes, sync status, structured table queries, read-only SQL and GraphQL over indexed Builders events
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/BuildersIndexer
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:42069
// @basePath /
// @schemes http https
package api
