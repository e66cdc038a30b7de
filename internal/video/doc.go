// Package video wraps the third-party conferencing service behind a small
// capability interface and tracks the single active call.
//
// The backend hands out a room id (POST /sessions/{id}/video/start). Tracker
// joins that room through a Conference, records when the call started, and
// reports the final duration when the call ends so it can be posted back
// (POST /sessions/{id}/video/end). Nothing about a call outlives it.
//
// Jitsi is the only Conference implementation. It opens a meet.jit.si URL
// through a caller-supplied launcher; the UI calls Left when the user says
// they hung up.
package video
