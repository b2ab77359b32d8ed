package table

type constError string

func (e constError) Error() string { return string(e) }

// ErrGenerationChanged は View の組み立て中にリハッシュが続き、
// 一貫した世代のスナップショットを得られなかったことを表します。
// 呼び出し側は次の機会に再試行します。
const ErrGenerationChanged = constError("table generation changed during snapshot")
