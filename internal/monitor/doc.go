// Package monitor renders debug views of the object layer: a top-down PNG
// of object boxes drawn with gonum/plot and an interactive go-echarts
// scatter served over HTTP.
package monitor
