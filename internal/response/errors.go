package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionNotFound      ErrCode = "SESSION_NOT_FOUND"
	ErrNoCachedAttempt      ErrCode = "NO_CACHED_ATTEMPT"
	ErrInvalidSessionData   ErrCode = "INVALID_SESSION_DATA"
	ErrInvalidTransition    ErrCode = "INVALID_TRANSITION"
	ErrUnknownOption        ErrCode = "UNKNOWN_OPTION"
	ErrIndexOutOfRange      ErrCode = "INDEX_OUT_OF_RANGE"
	ErrAlreadySubmitted     ErrCode = "ALREADY_SUBMITTED"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"
	ErrSyncInProgress       ErrCode = "SYNC_IN_PROGRESS"
	ErrResultNotReady       ErrCode = "RESULT_NOT_READY"

	// ─── Remote sync ───────────────────────────────────────────────────
	ErrSubmissionFailed ErrCode = "SUBMISSION_FAILED"
	ErrSessionExpired   ErrCode = "SESSION_EXPIRED"
	ErrPauseFailed      ErrCode = "PAUSE_FAILED"
	ErrResumeFailed     ErrCode = "RESUME_FAILED"
	ErrFlagFailed       ErrCode = "FLAG_FAILED"
	ErrUpstream         ErrCode = "UPSTREAM_ERROR"

	// ─── Comprehensive ─────────────────────────────────────────────────
	ErrRunNotFound   ErrCode = "RUN_NOT_FOUND"
	ErrDayOutOfOrder ErrCode = "DAY_OUT_OF_ORDER"
	ErrRunFinished   ErrCode = "RUN_FINISHED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token tidak valid."
	case ErrTokenExpired:
		return "Token sudah kedaluwarsa. Silakan login kembali."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrStudentAccessOnly:
		return "Fitur ini hanya untuk siswa."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Data yang dikirim tidak valid."
	case ErrInvalidID:
		return "ID tidak valid."
	case ErrInvalidPayload:
		return "Format permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Data tidak ditemukan."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Sesi latihan tidak ditemukan."
	case ErrNoCachedAttempt:
		return "Tidak ada sesi latihan yang dapat dipulihkan."
	case ErrInvalidSessionData:
		return "Soal latihan tidak dapat dimuat. Silakan mulai ulang."
	case ErrInvalidTransition:
		return "Aksi ini tidak dapat dilakukan pada status sesi saat ini."
	case ErrUnknownOption:
		return "Pilihan jawaban tidak termasuk dalam soal ini."
	case ErrIndexOutOfRange:
		return "Nomor soal di luar jangkauan."
	case ErrAlreadySubmitted:
		return "Sesi ini sudah dikumpulkan."
	case ErrConfirmationRequired:
		return "Belum ada soal yang dijawab. Konfirmasi untuk tetap mengumpulkan."
	case ErrSyncInProgress:
		return "Permintaan jeda/lanjut sebelumnya masih diproses."
	case ErrResultNotReady:
		return "Hasil belum tersedia."

	// ─── Remote sync ───────────────────────────────────────────────────
	case ErrSubmissionFailed:
		return "Gagal mengumpulkan jawaban. Silakan coba lagi."
	case ErrSessionExpired:
		return "Sesi latihan sudah tidak tersedia di server."
	case ErrPauseFailed:
		return "Gagal menjeda sesi. Waktu tetap berjalan."
	case ErrResumeFailed:
		return "Gagal melanjutkan sesi. Sesi tetap dijeda."
	case ErrFlagFailed:
		return "Gagal menandai soal."
	case ErrUpstream:
		return "Layanan ujian sedang tidak dapat dihubungi."

	// ─── Comprehensive ─────────────────────────────────────────────────
	case ErrRunNotFound:
		return "Ujian komprehensif tidak ditemukan."
	case ErrDayOutOfOrder:
		return "Hari ujian harus dikerjakan secara berurutan."
	case ErrRunFinished:
		return "Ujian komprehensif sudah selesai."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
