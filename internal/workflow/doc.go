// Package workflow drives a project through the ordered conversion stages
// (upload, captions, interpretation, export). Each stage's artifact is
// persisted before the next stage may begin, failures are recorded on the
// project without touching earlier artifacts, and a persisted project can be
// resumed by deriving its stage from which artifacts are present.
package workflow
