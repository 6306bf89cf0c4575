// Package web serves the students list view as server-rendered HTML.
//
// Routes:
//
//	GET  /students?page=n              list page
//	POST /students/refetch?page=n      reload a page
//	POST /students/cancel?page=n       abort an in-flight page load
//	POST /students/{id}/delete?page=n  delete a student
//	POST /students/{id}/prefetch       warm a student record (202)
//	GET  /students/{id}                student detail
//	GET  /health, /ready, /metrics
package web
