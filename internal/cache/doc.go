// Package cache は容量上限付きの並行キャッシュです。
//
// 追い出しは second-chance（CLOCK）方式で、専用の LRU リストを持たずに
// ハッシュテーブルの物理スロット順をカーソルで巡回します。Get は参照ビットを
// 立てるだけでロックを取らず、スイープは参照ビットの立ったエントリを 1 度だけ
// 見逃し、立っていないエントリを追い出します。
//
// カーソルはスイープをまたいで保持され、テーブルがリハッシュされて世代が
// 変わったときだけ先頭に戻ります。
package cache
