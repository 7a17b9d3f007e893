package zeroconf

var Pick = pick

var ParseTXT = parseTXT
